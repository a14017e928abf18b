package ratelimit

import "context"

// RateLimiter controls outbound email throughput per named bucket.
type RateLimiter interface {
	Allow(ctx context.Context, bucket string) (bool, error)
	Wait(ctx context.Context, bucket string) error
}
