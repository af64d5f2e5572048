package listing

import (
	"context"

	"github.com/homeswipe/homeswipe/internal/db"
	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/logger"
	"go.uber.org/zap"
)

// parseEntries converts search hits back into normalized listings. Entries
// whose payload fails to decode are logged and dropped.
func parseEntries(ctx context.Context, result *db.SearchResult) []domain.Listing {
	if result == nil || len(result.Entries) == 0 {
		return nil
	}

	out := make([]domain.Listing, 0, len(result.Entries))
	for _, entry := range result.Entries {
		raw := entry.Fields["$"]
		if raw == "" {
			continue
		}
		l, err := domain.ParseListing([]byte(raw))
		if err != nil {
			logger.FromContext(ctx).Warn("dropping undecodable listing",
				zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		out = append(out, l)
	}
	return out
}
