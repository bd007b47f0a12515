// Package rate implementa rate limiting de ventana fija, con backend redis
// (compartido entre réplicas) o en memoria (dev/tests).
package rate

import (
	"context"
	"strconv"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es el veredicto de una consulta al limiter.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// verdict arma el Result a partir del conteo de la ventana actual.
func verdict(hits, max int64, windowLeft time.Duration) Result {
	res := Result{Allowed: hits <= max}
	if left := max - hits; left > 0 {
		res.Remaining = left
	}
	if !res.Allowed {
		res.RetryAfter = windowLeft
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Second
		}
	}
	return res
}

func sanitizeKey(key string) string {
	return strings.ReplaceAll(key, " ", "_")
}

// RedisLimiter cuenta hits por ventana con INCR sobre una key que incluye
// el inicio de la ventana; cada key expira sola al cerrarse la ventana.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	max    int64
	window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	slot := now.Truncate(l.window)
	k := l.prefix + sanitizeKey(key) + ":" + strconv.FormatInt(slot.Unix(), 10)

	hits, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	if hits == 1 {
		// primera escritura de la ventana: fijar expiración con margen
		// para que las keys viejas no se acumulen
		_ = l.client.Expire(ctx, k, l.window+time.Second).Err()
	}
	return verdict(hits, l.max, slot.Add(l.window).Sub(now)), nil
}
