package swipe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/homeswipe/homeswipe/internal/db"
	"github.com/homeswipe/homeswipe/internal/domain"
)

func TestRecord_AssignsIDAndPersists(t *testing.T) {
	repo, ms := newTestRepo(t)

	var setKey string
	var setData []byte
	ms.jsonSetFn = func(_ context.Context, key, path string, data []byte) error {
		setKey = key
		setData = data
		if path != "$" {
			t.Errorf("expected root path, got %q", path)
		}
		return nil
	}

	ev, err := domain.NewSwipeEvent("user-1", "home-1", domain.ActionLike)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := repo.Record(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("expected a generated swipe id")
	}
	if setKey != "homeswipe:swipe:"+stored.ID {
		t.Errorf("unexpected key %q for id %q", setKey, stored.ID)
	}

	var roundTrip domain.SwipeEvent
	if err := json.Unmarshal(setData, &roundTrip); err != nil {
		t.Fatalf("stored payload is not valid JSON: %v", err)
	}
	if roundTrip.UserID != "user-1" || roundTrip.Action != domain.ActionLike {
		t.Errorf("stored swipe mismatch: %+v", roundTrip)
	}
}

func TestRecord_RejectsInvalidEvent(t *testing.T) {
	repo, _ := newTestRepo(t)

	tests := []struct {
		name string
		ev   domain.SwipeEvent
	}{
		{"missing user", domain.SwipeEvent{HomeID: "h1", Action: domain.ActionLike}},
		{"missing home", domain.SwipeEvent{UserID: "u1", Action: domain.ActionLike}},
		{"bad action", domain.SwipeEvent{UserID: "u1", HomeID: "h1", Action: "superlike"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Record(context.Background(), tc.ev)
			if !errors.Is(err, domain.ErrInvalidSwipe) {
				t.Errorf("expected ErrInvalidSwipe, got %v", err)
			}
		})
	}
}

func TestByUser_QueriesMostRecentFirst(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotQuery, gotSortBy string
	var gotDesc bool
	var gotLimit int
	ms.searchSortedFn = func(
		_ context.Context, index, query, sortBy string, desc bool, _, limit int, _ []string,
	) (*db.SearchResult, error) {
		if index != "homeswipe:swipe:idx" {
			t.Errorf("unexpected index %q", index)
		}
		gotQuery, gotSortBy, gotDesc, gotLimit = query, sortBy, desc, limit
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "homeswipe:swipe:s2", Fields: map[string]string{
				"$": `{"id":"s2","userId":"u1","homeId":"h2","action":"dislike","timestamp":"2026-02-01T10:01:00Z"}`,
			}},
			{Key: "homeswipe:swipe:s1", Fields: map[string]string{
				"$": `{"id":"s1","userId":"u1","homeId":"h1","action":"like","timestamp":"2026-02-01T10:00:00Z"}`,
			}},
		}}, nil
	}

	got, err := repo.ByUser(context.Background(), "u1", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "@userId:{u1}" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotSortBy != "timestamp" || !gotDesc {
		t.Errorf("expected timestamp DESC sort, got %q desc=%v", gotSortBy, gotDesc)
	}
	if gotLimit != 20 {
		t.Errorf("expected limit 20, got %d", gotLimit)
	}
	if len(got) != 2 || got[0].ID != "s2" || got[1].ID != "s1" {
		t.Errorf("unexpected swipes: %+v", got)
	}
}

func TestByUser_EscapesUserID(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotQuery string
	ms.searchSortedFn = func(
		_ context.Context, _, query, _ string, _ bool, _, _ int, _ []string,
	) (*db.SearchResult, error) {
		gotQuery = query
		return &db.SearchResult{}, nil
	}

	if _, err := repo.ByUser(context.Background(), "user@example.com", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, `user\@example\.com`) {
		t.Errorf("user id not escaped: %q", gotQuery)
	}
}

func TestByUserAction_FiltersOnBothTags(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotQuery string
	ms.searchSortedFn = func(
		_ context.Context, _, query, _ string, _ bool, _, _ int, _ []string,
	) (*db.SearchResult, error) {
		gotQuery = query
		return &db.SearchResult{}, nil
	}

	if _, err := repo.ByUserAction(context.Background(), "u1", domain.ActionLike, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "@userId:{u1} @action:{like}" {
		t.Errorf("unexpected query %q", gotQuery)
	}
}

func TestCountByUser(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchCountFn = func(_ context.Context, _, query string) (int, error) {
		if query != "@userId:{u1}" {
			t.Errorf("unexpected query %q", query)
		}
		return 7, nil
	}

	n, err := repo.CountByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}

func TestEnsureIndex_TimestampSortable(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		if def.Name != "homeswipe:swipe:idx" {
			t.Errorf("unexpected index name %q", def.Name)
		}
		var sortable bool
		for _, f := range def.Fields {
			if f.Alias == "timestamp" && f.Sortable {
				sortable = true
			}
		}
		if !sortable {
			t.Error("timestamp field must be SORTABLE")
		}
		return db.ErrIndexExists
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index should not be an error: %v", err)
	}
}
