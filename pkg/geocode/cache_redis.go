package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ctmap/internal/model"
)

const redisKeyPrefix = "ctmap:geocode:"

// RedisCache is a Cache in Redis. Expiry is left to Redis.
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
}

type redisEntry struct {
	Matched bool    `json:"matched"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// NewRedisCache opens a client for addr. A zero ttl keeps entries forever.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		rc:  redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl: ttl,
	}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*model.Coordinate, bool, error) {
	s, err := c.rc.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "geocode cache: redis get")
	}

	var e redisEntry
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return nil, false, eris.Wrap(err, "geocode cache: decode entry")
	}
	if !e.Matched {
		return nil, true, nil
	}
	return &model.Coordinate{Lat: e.Lat, Lng: e.Lng}, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, coord *model.Coordinate) error {
	e := redisEntry{Matched: coord != nil}
	if coord != nil {
		e.Lat, e.Lng = coord.Lat, coord.Lng
	}
	b, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "geocode cache: encode entry")
	}
	return eris.Wrap(c.rc.Set(ctx, redisKeyPrefix+key, b, c.ttl).Err(), "geocode cache: redis set")
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.rc.Close()
}
