package flow

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// DefaultKeyPrefix namespaces session keys in Redis.
const DefaultKeyPrefix = "rafiki:2fa:flow:"

// RedisStore keeps sessions as JSON strings with a Redis TTL, so sessions
// survive restarts and are shared between replicas.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	b, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+s.ID, b, ttl).Err(); err != nil {
		return errors.Join(twofactor.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	b, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, errors.Join(twofactor.ErrStorageUnavailable, err)
	}
	return decode(b)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return errors.Join(twofactor.ErrStorageUnavailable, err)
	}
	return nil
}

// IncrAttempts uses INCR on a sibling key, refreshing its expiry in the
// same transaction.
func (r *RedisStore) IncrAttempts(ctx context.Context, id string, ttl time.Duration) (int, error) {
	key := r.prefix + attemptsKey(id)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Join(twofactor.ErrStorageUnavailable, err)
	}
	return int(incr.Val()), nil
}

// Consume relies on DEL reporting how many keys it removed.
func (r *RedisStore) Consume(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, r.prefix+id).Result()
	if err != nil {
		return false, errors.Join(twofactor.ErrStorageUnavailable, err)
	}
	return n == 1, nil
}
