package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/academy-ledger/utils"
	"github.com/bsm/redislock"
)

// ErrLockNotObtained is returned when another request holds the seller lock
var ErrLockNotObtained = errors.New("seller lock not obtained")

// SellerLocker serializes sale writes for one seller across instances
type SellerLocker interface {
	Lock(ctx context.Context, sellerID uint) (release func(), err error)
}

// RedisSellerLocker takes a short-lived redislock per seller
type RedisSellerLocker struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
	retry  redislock.RetryStrategy
}

// NewRedisSellerLocker builds a locker on client; waits for a busy lock for at most ttl
func NewRedisSellerLocker(client *redislock.Client, keyPrefix string, ttl time.Duration) *RedisSellerLocker {
	const backoff = 50 * time.Millisecond
	attempts := int(ttl / backoff)
	if attempts < 1 {
		attempts = 1
	}
	return &RedisSellerLocker{
		client: client,
		ttl:    ttl,
		prefix: keyPrefix + ":" + utils.SellerLockPrefix,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(backoff), attempts),
	}
}

func (l *RedisSellerLocker) Lock(ctx context.Context, sellerID uint) (func(), error) {
	key := fmt.Sprintf("%s:%d", l.prefix, sellerID)
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, ErrLockNotObtained
	}
	if err != nil {
		return func() {}, fmt.Errorf("failed to obtain seller lock: %w", err)
	}

	return func() {
		// the lock may already have expired; the row lock still protected the write
		_ = lock.Release(context.Background())
	}, nil
}

// NoopSellerLocker is used when Redis is not configured
type NoopSellerLocker struct{}

func (NoopSellerLocker) Lock(context.Context, uint) (func(), error) {
	return func() {}, nil
}
