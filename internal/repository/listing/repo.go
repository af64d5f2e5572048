// Package listing persists provider listings as Redis JSON documents with an
// FT index over identity, city and the headline numerics.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/homeswipe/homeswipe/internal/db"
	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/logger"
	"go.uber.org/zap"
)

// maxInMembers caps the members of one tag-membership query. Identity lookups
// over larger id sets are chunked.
const maxInMembers = 10

// store is the consumer interface for listings (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo implements usecase/recommender.ListingRepository.
type Repo struct {
	store  store
	prefix string
}

// New creates a listing repository. prefix namespaces all keys and the index.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// EnsureIndex creates the listing FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.indexName()).
		OnJSON().
		Prefix(r.keyPrefix()).
		TagAs("$.id", "listingId").
		TagAs("$.homeId", "homeId").
		TagAs("$.city", "city").
		NumericAs("$.unformattedPrice", "price").
		NumericAs("$.beds", "beds").
		NumericAs("$.baths", "baths").
		NumericAs("$.livingArea", "area").
		NumericAs("$.yearBuilt", "yearBuilt").
		Build()
	if err != nil {
		return fmt.Errorf("build listing index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create listing index: %w", err)
	}
	return nil
}

// Upsert stores the original provider payload of one listing. Returns true
// if the listing was created rather than replaced.
func (r *Repo) Upsert(ctx context.Context, l domain.Listing) (bool, error) {
	if l.ID == "" {
		return false, fmt.Errorf("%w: listing has no id", domain.ErrInvalidListing)
	}

	key := r.key(l.ID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.JSONSet(ctx, key, "$", l.Payload); err != nil {
		return false, fmt.Errorf("json.set %s: %w", key, err)
	}
	return !exists, nil
}

// UpsertBatch stores a batch of listings, returning the number created.
func (r *Repo) UpsertBatch(ctx context.Context, listings []domain.Listing) (int, error) {
	var created int
	for i := range listings {
		wasNew, err := r.Upsert(ctx, listings[i])
		if err != nil {
			return created, fmt.Errorf("upsert listing %d of %d: %w", i+1, len(listings), err)
		}
		if wasNew {
			created++
		}
	}
	return created, nil
}

// FetchByIDs resolves listings for a set of ids. Ids are deduplicated and
// queried in chunks; a chunk with no matches on the primary identity is
// retried once against the secondary homeId field. A chunk that fails is
// logged and skipped, missing listings are silently absent from the result.
func (r *Repo) FetchByIDs(ctx context.Context, ids []string) ([]domain.Listing, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	log := logger.FromContext(ctx)
	out := make([]domain.Listing, 0, len(ids))

	for start := 0; start < len(ids); start += maxInMembers {
		end := start + maxInMembers
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		found, err := r.fetchChunk(ctx, "listingId", chunk)
		if err != nil {
			log.Warn("listing chunk fetch failed",
				zap.Strings("ids", chunk), zap.Error(err))
			continue
		}

		if len(found) == 0 {
			found, err = r.fetchChunk(ctx, "homeId", chunk)
			if err != nil {
				log.Warn("listing homeId fallback failed",
					zap.Strings("ids", chunk), zap.Error(err))
				continue
			}
		}

		out = append(out, found...)
	}

	return out, nil
}

// ByCity returns up to limit listings in one city.
func (r *Repo) ByCity(ctx context.Context, city string, limit int) ([]domain.Listing, error) {
	if city == "" || limit <= 0 {
		return nil, nil
	}

	query := tagFilter("city", city)
	result, err := r.store.SearchList(ctx, r.indexName(), query, 0, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("search city %q: %w", city, err)
	}
	return parseEntries(ctx, result), nil
}

// Sample returns up to limit listings with no filter applied.
func (r *Repo) Sample(ctx context.Context, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return nil, nil
	}

	result, err := r.store.SearchList(ctx, r.indexName(), "*", 0, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("search sample: %w", err)
	}
	return parseEntries(ctx, result), nil
}

// Count returns the total number of stored listings.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

func (r *Repo) fetchChunk(ctx context.Context, field string, ids []string) ([]domain.Listing, error) {
	query := tagMembership(field, ids)
	result, err := r.store.SearchList(ctx, r.indexName(), query, 0, len(ids), []string{"$"})
	if err != nil {
		return nil, err
	}
	return parseEntries(ctx, result), nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) keyPrefix() string {
	return r.prefix + "listing:"
}

func (r *Repo) indexName() string {
	return r.prefix + "listing:idx"
}

// IndexName exposes the search index name for readiness probes.
func (r *Repo) IndexName() string { return r.indexName() }

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func tagFilter(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

func tagMembership(field string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, " | "))
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
