package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shorturl:"

// incrementScript bumps the counter only if its stats key exists, mirroring
// an UPDATE that matches no row
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('INCR', KEYS[1])
`)

// RedisRepository keeps url mappings and visit counters in Redis as the
// primary store:
//
//	shorturl:url:<id>   -> long url
//	shorturl:id:<url>   -> id (reverse index for dedup)
//	shorturl:stats:<id> -> visit count
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository wraps client after checking it can reach the server
func NewRedisRepository(ctx context.Context, client *redis.Client) (*RedisRepository, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRepository{client: client}, nil
}

func urlKey(id string) string   { return keyPrefix + "url:" + id }
func idKey(url string) string   { return keyPrefix + "id:" + url }
func statsKey(id string) string { return keyPrefix + "stats:" + id }

// FindIDByURL returns the id recorded for url
func (r *RedisRepository) FindIDByURL(ctx context.Context, url string) (string, error) {
	id, err := r.client.Get(ctx, idKey(url)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return id, err
}

// FindURLByID returns the long url stored under id
func (r *RedisRepository) FindURLByID(ctx context.Context, id string) (string, error) {
	url, err := r.client.Get(ctx, urlKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return url, err
}

// InsertMapping stores id -> url, failing if id is taken, and records the
// reverse index unless the url already has one
func (r *RedisRepository) InsertMapping(ctx context.Context, id, url string) error {
	ok, err := r.client.SetNX(ctx, urlKey(id), url, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	return r.client.SetNX(ctx, idKey(url), id, 0).Err()
}

// InsertStats creates the counter for id at zero
func (r *RedisRepository) InsertStats(ctx context.Context, id string) error {
	ok, err := r.client.SetNX(ctx, statsKey(id), 0, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	return nil
}

// IncrementVisits atomically adds one to the counter of id
func (r *RedisRepository) IncrementVisits(ctx context.Context, id string) error {
	n, err := incrementScript.Run(ctx, r.client, []string{statsKey(id)}).Int64()
	if err != nil {
		return err
	}
	if n < 0 {
		return ErrNotFound
	}
	return nil
}

// Visits returns the visit count of id
func (r *RedisRepository) Visits(ctx context.Context, id string) (int64, error) {
	n, err := r.client.Get(ctx, statsKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	return n, err
}

// Ping checks the server is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
