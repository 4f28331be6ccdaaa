// Package cache keeps solved tables so repeated lookups against an unchanged
// inventory skip the enumeration.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"

	"github.com/eugenenazirov/balance-table/internal/balance"
)

const keyPrefix = "balance-table:"

// Cache stores solved tables by fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (*balance.Table, bool, error)
	Set(ctx context.Context, key string, table *balance.Table) error
}

// Key fingerprints an inventory together with the bounds it is solved for.
// Inventory order is part of the key since it decides which combination is kept.
func Key(inventory []balance.Denomination, bounds balance.Bounds) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(bounds.Low))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(bounds.High))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(bounds.RetainUndershoot))
	for _, d := range inventory {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(d.Value))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(d.Count))
	}
	return keyPrefix + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// MemoryCache keeps tables in process memory with a TTL.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-process cache. A non-positive ttl keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		return &MemoryCache{store: gocache.New(gocache.NoExpiration, 0)}
	}
	return &MemoryCache{store: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached table for key.
func (c *MemoryCache) Get(_ context.Context, key string) (*balance.Table, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	table, ok := v.(*balance.Table)
	return table, ok, nil
}

// Set stores table under key. Tables are immutable, so no copy is made.
func (c *MemoryCache) Set(_ context.Context, key string, table *balance.Table) error {
	c.store.Set(key, table, gocache.DefaultExpiration)
	return nil
}

// RedisCache shares solved tables between instances through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. A non-positive ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, ttl: ttl}
}

type snapshot struct {
	Bounds balance.Bounds `json:"bounds"`
	Rows   []balance.Row  `json:"rows"`
}

// Get loads and decodes the table stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (*balance.Table, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode cached table: %w", err)
	}
	return balance.NewTable(snap.Rows, snap.Bounds), true, nil
}

// Set encodes table and stores it under key.
func (c *RedisCache) Set(ctx context.Context, key string, table *balance.Table) error {
	data, err := json.Marshal(snapshot{Bounds: table.Bounds(), Rows: table.Rows()})
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
