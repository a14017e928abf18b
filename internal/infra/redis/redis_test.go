package redis

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedis(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := NewRedis("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	opts := client.Options()
	if opts.PoolSize != defaultPoolSize {
		t.Errorf("pool size = %d, want %d", opts.PoolSize, defaultPoolSize)
	}
	if opts.MinIdleConns != defaultMinIdleConns {
		t.Errorf("min idle conns = %d, want %d", opts.MinIdleConns, defaultMinIdleConns)
	}
	if opts.DialTimeout != defaultDialTimeout {
		t.Errorf("dial timeout = %v, want %v", opts.DialTimeout, defaultDialTimeout)
	}
}

func TestNewRedis_URLOverridesPool(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := NewRedis(fmt.Sprintf("redis://%s?pool_size=5", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	if got := client.Options().PoolSize; got != 5 {
		t.Errorf("pool size = %d, want url value 5", got)
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewRedis("not-a-redis-url"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
