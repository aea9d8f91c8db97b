// Package lock provides the run lock that keeps two digest runs of the same
// kind from overlapping. Redis is used when configured; otherwise a Postgres
// advisory lock on a dedicated connection.
package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lock is a single non-blocking mutual exclusion lease. A Lock instance is
// used by one goroutine; concurrent runs each create their own.
type Lock interface {
	// Acquire tries to take the lock and reports whether it did.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this instance still owns it.
	Release(ctx context.Context) error
}

// Factory creates a Lock for key.
type Factory func(key string) Lock

// NewFactory returns a Redis-backed factory when rdb is non-nil, else a
// Postgres advisory lock factory over pool.
func NewFactory(rdb *redis.Client, pool *sql.DB, ttl time.Duration) Factory {
	if rdb != nil {
		return func(key string) Lock { return NewRedisLock(rdb, key, ttl) }
	}
	return func(key string) Lock { return NewPGAdvisoryLock(pool, key) }
}

// ─── REDIS ───────────────────────────────────────────────────────────────────

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLock is SET NX with a TTL and a random owner token. The TTL bounds how
// long a crashed run can block the next one.
type RedisLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// NewRedisLock creates a lock stored under "lock:<key>".
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    "lock:" + key,
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock: acquire %s: %w", l.key, err)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err(); err != nil {
		return fmt.Errorf("lock: release %s: %w", l.key, err)
	}
	return nil
}

// ─── POSTGRES ────────────────────────────────────────────────────────────────

// PGAdvisoryLock uses pg_try_advisory_lock. Advisory locks are held by a
// session, so the connection that took the lock is pinned until Release and
// the lock dies with it if the process crashes.
type PGAdvisoryLock struct {
	pool   *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock derives a stable lock id from key.
func NewPGAdvisoryLock(pool *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{pool: pool, lockID: int64(h.Sum64())}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.pool.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("lock: get connection: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("lock: advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("lock: advisory unlock: %w", err)
	}
	return nil
}
