package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/model"
)

// Cache stores geocode outcomes by CacheKey. A nil coordinate records an
// address the service could not place, so it is not asked again.
type Cache interface {
	Get(ctx context.Context, key string) (coord *model.Coordinate, found bool, err error)
	Set(ctx context.Context, key string, coord *model.Coordinate) error
	Close() error
}

// CacheKey returns the SHA-256 hex of the normalized address.
func CacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// CachedClient answers from a Cache before calling the wrapped Client.
// Cache failures are logged and treated as misses; errors from the wrapped
// client are never cached.
type CachedClient struct {
	next  Client
	cache Cache
}

// NewCachedClient wraps next with cache.
func NewCachedClient(next Client, cache Cache) *CachedClient {
	return &CachedClient{next: next, cache: cache}
}

// Geocode implements Client.
func (c *CachedClient) Geocode(ctx context.Context, address string) (*model.Coordinate, error) {
	key := CacheKey(address)

	coord, found, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		zap.L().Warn("geocode cache read failed", zap.String("key", key[:12]), zap.Error(err))
	case found:
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", coord != nil))
		return coord, nil
	}

	coord, err = c.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, coord); err != nil {
		zap.L().Warn("geocode cache write failed", zap.String("key", key[:12]), zap.Error(err))
	}
	return coord, nil
}
