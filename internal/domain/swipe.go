package domain

import (
	"fmt"
	"time"
)

// SwipeAction is a user's binary preference judgment on one listing.
type SwipeAction string

const (
	// ActionLike marks a positive judgment.
	ActionLike SwipeAction = "like"
	// ActionDislike marks a negative judgment.
	ActionDislike SwipeAction = "dislike"
)

// Valid reports whether the action is one of the two known values.
func (a SwipeAction) Valid() bool {
	return a == ActionLike || a == ActionDislike
}

// SwipeEvent is one immutable entry in the swipe ledger. Timestamp is an
// RFC 3339 string; lexicographic order on it equals chronological order.
type SwipeEvent struct {
	ID        string      `json:"id,omitempty"`
	UserID    string      `json:"userId"`
	HomeID    string      `json:"homeId"`
	Action    SwipeAction `json:"action"`
	Timestamp string      `json:"timestamp"`
}

// NewSwipeEvent builds a swipe event stamped with the current time.
func NewSwipeEvent(userID, homeID string, action SwipeAction) (SwipeEvent, error) {
	if userID == "" || homeID == "" || !action.Valid() {
		return SwipeEvent{}, fmt.Errorf("%w: userId=%q homeId=%q action=%q",
			ErrInvalidSwipe, userID, homeID, action)
	}
	return SwipeEvent{
		UserID:    userID,
		HomeID:    homeID,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Label converts the action to a training label: like=1, dislike=0.
func (s SwipeEvent) Label() float64 {
	if s.Action == ActionLike {
		return 1
	}
	return 0
}

// TrainingExample joins a swipe to its listing's feature vector.
type TrainingExample struct {
	Features []float64
	Label    float64
}
