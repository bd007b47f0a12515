// Package cache provee el cache efímero del core con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Acá viven los artefactos de corta vida y un solo uso: challenge tokens MFA
// y exchange codes OAuth. TakeOnce garantiza que a lo sumo un caller
// concurrente reclame una key dada.
package cache

import (
	"context"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. found=false si no existe o expiró.
	Get(ctx context.Context, key string) (val []byte, found bool, err error)

	// Set guarda un valor con TTL. Si ttl es 0, no expira.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Delete elimina una key (idempotente).
	Delete(ctx context.Context, key string) error

	// TakeOnce obtiene y elimina de forma atómica: de N lectores concurrentes
	// sobre la misma key, exactamente uno recibe found=true.
	TakeOnce(ctx context.Context, key string) (val []byte, found bool, err error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // prefijo para todas las keys
}

// New crea un cliente según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
