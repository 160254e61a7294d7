// Package cache implements the result cache: a Redis-backed store
// keyed by the MD5 hex digest of the normalized query text, holding
// gob-serialized result tables.
package cache

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/colsql/queryserver/internal/table"
)

// Store wraps a Redis client for result caching.
type Store struct {
	client *redis.Client
	expiry time.Duration
}

// New returns a Store connected to addr, with entries expiring after
// expirySeconds.
func New(addr string, expirySeconds int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		expiry: time.Duration(expirySeconds) * time.Second,
	}
}

// NormalizeQuery trims, lowercases, and collapses whitespace in sql.
func NormalizeQuery(sql string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(sql))), " ")
}

// Key returns the MD5 hex digest of the normalized query text.
func Key(sql string) string {
	sum := md5.Sum([]byte(NormalizeQuery(sql)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached table for sql, or ok=false on a miss.
func (s *Store) Get(ctx context.Context, sql string) (*table.Table, bool, error) {
	raw, err := s.client.Get(ctx, Key(sql)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var tbl table.Table
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&tbl); err != nil {
		return nil, false, err
	}
	return &tbl, true, nil
}

// Put stores result under sql's cache key with the configured TTL.
// existed reports whether the key already held a value, so the caller
// can fire an invalidation notification on overwrite.
func (s *Store) Put(ctx context.Context, sql string, result *table.Table) (existed bool, err error) {
	key := Key(sql)
	count, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(result); err != nil {
		return false, err
	}
	if err := s.client.Set(ctx, key, buf.Bytes(), s.expiry).Err(); err != nil {
		return false, err
	}
	return count > 0, nil
}

// FlushAll clears the entire cache.
func (s *Store) FlushAll(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}

// Delete removes sql's cache entry, if any.
func (s *Store) Delete(ctx context.Context, sql string) error {
	return s.client.Del(ctx, Key(sql)).Err()
}
