package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olonts/salein-reminders/internal/notify"
	goredis "github.com/redis/go-redis/v9"
)

const defaultDedupTTL = 30 * 24 * time.Hour

var _ notify.Deduper = (*RedisDeduper)(nil)

// RedisDeduper tracks announced reminder outcomes across replicas with SETNX.
// Entries expire after the TTL; a reminder is long terminal by then.
type RedisDeduper struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *goredis.Client, ttl time.Duration) (*RedisDeduper, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}

	return &RedisDeduper{client: client, ttl: ttl}, nil
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, reminderID string, outcome notify.Outcome) (bool, error) {
	if d == nil || d.client == nil {
		return false, fmt.Errorf("deduper is not initialized")
	}

	trimmedID := strings.TrimSpace(reminderID)
	if trimmedID == "" {
		return false, fmt.Errorf("reminder id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("notify:%s:%s", trimmedID, outcome)
	first, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record notification dedup key: %w", err)
	}

	return first, nil
}
