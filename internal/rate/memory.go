package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter es la variante in-process, misma semántica que RedisLimiter.
// No comparte estado entre réplicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int64
	size    time.Duration
}

type window struct {
	start time.Time
	hits  int64
}

func NewMemoryLimiter(max int, size time.Duration) *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window), max: int64(max), size: size}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	slot := now.Truncate(l.size)

	l.mu.Lock()
	w := l.windows[key]
	if w == nil || w.start.Before(slot) {
		w = &window{start: slot}
		l.windows[key] = w
	}
	w.hits++
	hits := w.hits
	l.mu.Unlock()

	return verdict(hits, l.max, slot.Add(l.size).Sub(now)), nil
}
