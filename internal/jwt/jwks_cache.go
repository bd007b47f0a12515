package jwt

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// JWKSCache cachea el JSON del JWKS con TTL acotado. El material de claves es
// read-mostly: misses concurrentes se colapsan con singleflight para que un
// solo goroutine reconstruya.
type JWKSCache struct {
	ttl   time.Duration
	build func() ([]byte, error)

	mu   sync.RWMutex
	data []byte
	at   time.Time

	sf singleflight.Group
}

// NewJWKSCache crea el cache. build produce el JSON fresco.
func NewJWKSCache(ttl time.Duration, build func() ([]byte, error)) *JWKSCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &JWKSCache{ttl: ttl, build: build}
}

// Get retorna el JWKS cacheado, reconstruyéndolo si venció el TTL.
func (c *JWKSCache) Get() ([]byte, error) {
	c.mu.RLock()
	data, at := c.data, c.at
	c.mu.RUnlock()
	if data != nil && time.Since(at) < c.ttl {
		return data, nil
	}

	v, err, _ := c.sf.Do("jwks", func() (any, error) {
		// double-check: otro goroutine pudo refrescar mientras esperábamos
		c.mu.RLock()
		d, a := c.data, c.at
		c.mu.RUnlock()
		if d != nil && time.Since(a) < c.ttl {
			return d, nil
		}
		fresh, err := c.build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.data, c.at = fresh, time.Now()
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate fuerza reconstrucción en el próximo Get.
func (c *JWKSCache) Invalidate() {
	c.mu.Lock()
	c.data, c.at = nil, time.Time{}
	c.mu.Unlock()
}
