package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSwipe signals a malformed swipe event.
	ErrInvalidSwipe = errors.New("invalid swipe")
	// ErrInvalidListing signals a listing that cannot be stored.
	ErrInvalidListing = errors.New("invalid listing")
	// ErrInsufficientData signals too few swipes to train a model.
	ErrInsufficientData = errors.New("not enough swipes")
	// ErrNoCandidates signals an empty candidate pool after exclusion.
	ErrNoCandidates = errors.New("no unseen homes available")
)

// InsufficientDataError wraps ErrInsufficientData with the user's actual
// swipe count so callers can show progress toward the training threshold.
// ValidExamples is set when the shortfall comes from unresolvable listings
// rather than from the raw swipe count.
type InsufficientDataError struct {
	SwipeCount    int
	ValidExamples int
}

func (e *InsufficientDataError) Error() string {
	if e.ValidExamples < e.SwipeCount {
		return fmt.Sprintf("%s: %d swipes, %d valid training examples",
			ErrInsufficientData.Error(), e.SwipeCount, e.ValidExamples)
	}
	return fmt.Sprintf("%s: have %d", ErrInsufficientData.Error(), e.SwipeCount)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// NewInsufficientData creates an insufficient-data error from a raw swipe count.
func NewInsufficientData(swipeCount int) error {
	return &InsufficientDataError{SwipeCount: swipeCount, ValidExamples: swipeCount}
}

// NewInsufficientValidData creates an insufficient-data error for the case
// where swipes exist but too few resolve to listings.
func NewInsufficientValidData(swipeCount, validExamples int) error {
	return &InsufficientDataError{SwipeCount: swipeCount, ValidExamples: validExamples}
}
