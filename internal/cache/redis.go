package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"kitchen-orders/internal/config"
	"kitchen-orders/internal/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	sweepBatch = 100

	// generationPrefix namespaces the invalidation counter of a key or tag.
	generationPrefix = "gen:"

	// generationTTL outlives any in-flight load.
	generationTTL = time.Hour
)

// fillScript writes a loaded value only while every generation still matches
// the one read before the load.
// KEYS: key, generation keys..., tags...  ARGV: generation count, generations..., value, ttl ms.
var fillScript = redis.NewScript(`
local n = tonumber(ARGV[1])
for i = 1, n do
	if (redis.call('GET', KEYS[i + 1]) or '0') ~= ARGV[i + 1] then
		return 0
	end
end
local ttl = tonumber(ARGV[n + 3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[n + 2], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[n + 2])
end
for i = n + 2, #KEYS do
	redis.call('SADD', KEYS[i], KEYS[1])
	if ttl > 0 then
		redis.call('PEXPIRE', KEYS[i], ttl)
	end
end
return 1
`)

func generationKey(key string) string {
	return generationPrefix + key
}

// NewRedisClient creates the shared command client used by the cache and the redis broker.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// redisStore implements Store on a go-redis client.
type redisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed cache store.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) Store {
	return &redisStore{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// fail logs a failed operation and converts it into an Outcome.
func (s *redisStore) fail(op string, err error, keys ...string) Outcome {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	s.logger.Warn().Err(err).Str("op", op).Strs("keys", keys).Msg("cache operation failed")
	return Outcome{Err: fmt.Errorf("cache %s failed: %w", op, err)}
}

func (s *redisStore) Get(ctx context.Context, key string, tags ...string) Lookup {
	guarded := append([]string{key}, tags...)
	keys := make([]string, 0, len(guarded)+1)
	keys = append(keys, key)
	for _, k := range guarded {
		keys = append(keys, generationKey(k))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return Lookup{Err: s.fail("get", err, key).Err}
	}

	version := Version{keys: guarded, gens: make([]int64, len(guarded))}
	for i, raw := range values[1:] {
		if str, ok := raw.(string); ok {
			version.gens[i], _ = strconv.ParseInt(str, 10, 64)
		}
	}

	str, ok := values[0].(string)
	if !ok {
		return Lookup{Version: version}
	}
	return Lookup{Value: []byte(str), Hit: true, Version: version}
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) Outcome {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, tag, key)
			pipe.Expire(ctx, tag, ttl)
		}
		return nil
	})
	if err != nil {
		return s.fail("set", err, key)
	}
	return Outcome{}
}

func (s *redisStore) Fill(ctx context.Context, key string, seen Version, value []byte, ttl time.Duration, tags ...string) Outcome {
	keys := make([]string, 0, 1+len(seen.keys)+len(tags))
	keys = append(keys, key)
	args := make([]interface{}, 0, 3+len(seen.gens))
	args = append(args, len(seen.keys))
	for i, k := range seen.keys {
		keys = append(keys, generationKey(k))
		args = append(args, strconv.FormatInt(seen.gens[i], 10))
	}
	keys = append(keys, tags...)
	args = append(args, value, ttl.Milliseconds())

	written, err := fillScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return s.fail("fill", err, key)
	}
	if written == 0 {
		metrics.CacheStaleFills.Inc()
		s.logger.Debug().Str("key", key).Msg("cache fill dropped, entry invalidated during load")
		return Outcome{Stale: true}
	}
	return Outcome{}
}

// evict deletes keys and moves their generations so in-flight fills are dropped.
func (s *redisStore) evict(ctx context.Context, keys []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		return nil
	})
	return err
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) Outcome {
	if len(keys) == 0 {
		return Outcome{}
	}
	if err := s.evict(ctx, keys); err != nil {
		return s.fail("delete", err, keys...)
	}
	return Outcome{}
}

func (s *redisStore) InvalidateTags(ctx context.Context, tags ...string) Outcome {
	for _, tag := range tags {
		members, err := s.client.SMembers(ctx, tag).Result()
		if err != nil {
			return s.fail("invalidate", err, tag)
		}
		if err := s.evict(ctx, append(members, tag)); err != nil {
			return s.fail("invalidate", err, tag)
		}
		s.logger.Debug().Str("tag", tag).Int("keys", len(members)).Msg("cache tag invalidated")
	}
	return Outcome{}
}

func (s *redisStore) Sweep(ctx context.Context, pattern string) Outcome {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, sweepBatch).Result()
		if err != nil {
			return s.fail("sweep", err, pattern)
		}
		if len(keys) > 0 {
			if err := s.evict(ctx, keys); err != nil {
				return s.fail("sweep", err, pattern)
			}
			removed += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	s.logger.Debug().Str("pattern", pattern).Int("keys", removed).Msg("cache sweep finished")
	return Outcome{}
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
