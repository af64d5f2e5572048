// Package swipe persists the append-only swipe ledger as Redis JSON
// documents. The FT index keeps timestamp sortable so recency queries run
// server-side.
package swipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/homeswipe/homeswipe/internal/db"
	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/logger"
	"go.uber.org/zap"
)

// store is the consumer interface for swipes (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	SearchSorted(ctx context.Context, index, query, sortBy string, desc bool, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo implements usecase/recommender.SwipeRepository.
type Repo struct {
	store  store
	prefix string
}

// New creates a swipe repository. prefix namespaces all keys and the index.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// EnsureIndex creates the swipe FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.indexName()).
		OnJSON().
		Prefix(r.keyPrefix()).
		TagAs("$.userId", "userId").
		TagAs("$.homeId", "homeId").
		TagAs("$.action", "action").
		TagAs("$.timestamp", "timestamp").Sortable().
		Build()
	if err != nil {
		return fmt.Errorf("build swipe index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create swipe index: %w", err)
	}
	return nil
}

// Record appends one swipe to the ledger under a fresh id.
func (r *Repo) Record(ctx context.Context, ev domain.SwipeEvent) (domain.SwipeEvent, error) {
	if ev.UserID == "" || ev.HomeID == "" || !ev.Action.Valid() {
		return domain.SwipeEvent{}, fmt.Errorf("%w: userId=%q homeId=%q action=%q",
			domain.ErrInvalidSwipe, ev.UserID, ev.HomeID, ev.Action)
	}

	ev.ID = uuid.NewString()

	data, err := json.Marshal(ev)
	if err != nil {
		return domain.SwipeEvent{}, fmt.Errorf("marshal swipe: %w", err)
	}

	key := r.key(ev.ID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return domain.SwipeEvent{}, fmt.Errorf("json.set %s: %w", key, err)
	}
	return ev, nil
}

// ByUser returns up to limit swipes for one user, most recent first.
func (r *Repo) ByUser(ctx context.Context, userID string, limit int) ([]domain.SwipeEvent, error) {
	if userID == "" || limit <= 0 {
		return nil, nil
	}

	query := tagFilter("userId", userID)
	result, err := r.store.SearchSorted(ctx, r.indexName(), query, "timestamp", true, 0, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("search swipes for %q: %w", userID, err)
	}
	return parseEntries(ctx, result), nil
}

// ByUserAction returns up to limit swipes of one action for a user, most
// recent first.
func (r *Repo) ByUserAction(
	ctx context.Context, userID string, action domain.SwipeAction, limit int,
) ([]domain.SwipeEvent, error) {
	if userID == "" || limit <= 0 {
		return nil, nil
	}

	query := tagFilter("userId", userID) + " " + tagFilter("action", string(action))
	result, err := r.store.SearchSorted(ctx, r.indexName(), query, "timestamp", true, 0, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("search %s swipes for %q: %w", action, userID, err)
	}
	return parseEntries(ctx, result), nil
}

// CountByUser returns a user's total swipe count.
func (r *Repo) CountByUser(ctx context.Context, userID string) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), tagFilter("userId", userID))
	if err != nil {
		return 0, fmt.Errorf("count swipes for %q: %w", userID, err)
	}
	return n, nil
}

// CountByUserAction returns a user's swipe count for one action.
func (r *Repo) CountByUserAction(ctx context.Context, userID string, action domain.SwipeAction) (int, error) {
	query := tagFilter("userId", userID) + " " + tagFilter("action", string(action))
	n, err := r.store.SearchCount(ctx, r.indexName(), query)
	if err != nil {
		return 0, fmt.Errorf("count %s swipes for %q: %w", action, userID, err)
	}
	return n, nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) keyPrefix() string {
	return r.prefix + "swipe:"
}

func (r *Repo) indexName() string {
	return r.prefix + "swipe:idx"
}

// IndexName exposes the search index name for readiness probes.
func (r *Repo) IndexName() string { return r.indexName() }

// parseEntries decodes swipe documents from search hits. Undecodable entries
// are logged and dropped.
func parseEntries(ctx context.Context, result *db.SearchResult) []domain.SwipeEvent {
	if result == nil || len(result.Entries) == 0 {
		return nil
	}

	out := make([]domain.SwipeEvent, 0, len(result.Entries))
	for _, entry := range result.Entries {
		raw := entry.Fields["$"]
		if raw == "" {
			continue
		}
		var ev domain.SwipeEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			logger.FromContext(ctx).Warn("dropping undecodable swipe",
				zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		out = append(out, ev)
	}
	return out
}

func tagFilter(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)
