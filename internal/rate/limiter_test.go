package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
)

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	l := NewRedisLimiter(client, "rl:", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "login:1.2.3.4")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d must be allowed", i+1)
		}
	}
	res, err := l.Allow(ctx, "login:1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("4th hit must be denied")
	}
	if res.Remaining != 0 {
		t.Fatalf("remaining = %d", res.Remaining)
	}

	// otra key no comparte ventana
	if res, _ := l.Allow(ctx, "login:5.6.7.8"); !res.Allowed {
		t.Fatal("independent key must be allowed")
	}
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	l := NewMemoryLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if res, _ := l.Allow(ctx, "k"); !res.Allowed {
			t.Fatalf("hit %d must pass", i+1)
		}
	}
	if res, _ := l.Allow(ctx, "k"); res.Allowed {
		t.Fatal("over-limit hit must be denied")
	}

	time.Sleep(60 * time.Millisecond)
	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("new window must reset the counter")
	}
}
