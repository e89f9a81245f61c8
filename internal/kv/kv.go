package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialgrab/downorc/internal/config"
)

// Store wraps a Redis client with the narrow set of operations the
// Artifact Cache, Slot Controller, and Routing Engine need: string
// get/set with TTL, and atomic counters. Every method fails soft where
// the spec requires fail-open behavior (§4.3, §4.4) — callers decide
// whether an error is fatal.
type Store struct {
	client *redis.Client
}

func New(cfg *config.RedisConfig) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Get returns the string value at key, or ("", false) on miss.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set writes value at key with the given TTL (0 = no expiry).
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// SetNX writes value at key only if it does not already exist, and
// reports whether it wrote.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// Del removes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// IncrWithCap increments the counter at key, setting its TTL when the
// increment creates it (value 1), and reverts the increment if the
// post-increment value exceeds cap. This is the Slot Controller's
// acquire primitive (§4.3): atomic increment, then a separate
// conditional revert.
func (s *Store) IncrWithCap(ctx context.Context, key string, cap int64, ttl time.Duration) (bool, error) {
	val, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if val == 1 {
		// first writer establishes the TTL window
		s.client.Expire(ctx, key, ttl)
	}
	if val > cap {
		s.client.Decr(ctx, key)
		return false, nil
	}
	return true, nil
}

// Decr releases one unit of a counter acquired via IncrWithCap,
// clamping at zero per the "never negative" invariant (§8.2).
func (s *Store) Decr(ctx context.Context, key string) error {
	val, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if val < 0 {
		s.client.Set(ctx, key, 0, 0)
	}
	return nil
}

// IncrObservability bumps a best-effort observability counter
// (counter:active_downloads, counter:active_uploads) with a fixed TTL,
// ignoring errors per the fail-open contract (§4.3).
func (s *Store) IncrObservability(ctx context.Context, key string, ttl time.Duration) {
	val, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	if val == 1 {
		s.client.Expire(ctx, key, ttl)
	}
}

// DecrObservability mirrors IncrObservability on the release side.
func (s *Store) DecrObservability(ctx context.Context, key string) {
	val, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return
	}
	if val < 0 {
		s.client.Set(ctx, key, 0, 0)
	}
}

// Key builders for the config store's documented namespaces (§6).
func RoutingKey(sourceKey string) string         { return fmt.Sprintf("routing:%s", sourceKey) }
func RoutingOverrideKey(sourceKey string) string { return fmt.Sprintf("routing_override:%s", sourceKey) }
func UserDownloadsKey(userID string) string      { return fmt.Sprintf("downloads:user:%s", userID) }

const (
	FFmpegActiveKey       = "ffmpeg:active"
	ActiveDownloadsKey    = "counter:active_downloads"
	ActiveUploadsKey      = "counter:active_uploads"
	SystemCPUPercentKey   = "system:cpu_percent"
	SystemRAMPercentKey   = "system:ram_percent"
	SystemDiskPercentKey  = "system:disk_percent"
	SystemTmpUsedBytesKey = "system:tmp_used_bytes"
)
