package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "cache:bonus:status:"
	maxStatusTTL    = 5 * time.Minute
)

// StatusCache caches per-user daily bonus status documents in redis. A nil
// client turns every call into a miss or a no-op.
type StatusCache struct {
	rc *redis.Client
}

// NewStatusCache wraps rc, which may be nil.
func NewStatusCache(rc *redis.Client) *StatusCache {
	return &StatusCache{rc: rc}
}

func statusKey(userID string) string {
	return statusKeyPrefix + userID
}

// Get loads the cached status for userID into v.
func (s *StatusCache) Get(ctx context.Context, userID string, v interface{}) bool {
	if s == nil || s.rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := s.rc.Get(ctx, statusKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Debugf("status cache get failed user=%s err=%v", userID, err)
		}
		return false
	}
	return json.Unmarshal(b, v) == nil
}

// Set stores v until expiresAt, capped at five minutes so balance changes from
// other award sources show up quickly.
func (s *StatusCache) Set(ctx context.Context, userID string, v interface{}, expiresAt time.Time) {
	if s == nil || s.rc == nil {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if ttl > maxStatusTTL {
		ttl = maxStatusTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.rc.Set(ctx, statusKey(userID), b, ttl).Err(); err != nil {
		Sugar.Warnf("status cache set failed user=%s err=%v", userID, err)
	}
}

// Invalidate drops the cached status for userID.
func (s *StatusCache) Invalidate(ctx context.Context, userID string) {
	if s == nil || s.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.rc.Del(ctx, statusKey(userID)).Err(); err != nil {
		Sugar.Warnf("status cache invalidate failed user=%s err=%v", userID, err)
	}
}
