package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu       sync.Mutex
	instance *zap.Logger
)

// Init configura el singleton. La primera llamada gana; las siguientes
// no tienen efecto.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = build(cfg)
	}
}

// L retorna el singleton, inicializándolo en modo dev si hace falta.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = build(Config{})
	}
	return instance
}

// Named retorna un logger con nombre de componente (ej: "http", "mfa").
func Named(name string) *zap.Logger { return L().Named(name) }

// With retorna un logger con campos persistentes.
func With(fields ...zap.Field) *zap.Logger { return L().With(fields...) }

// S es el SugaredLogger del singleton, para logs printf-style puntuales.
func S() *zap.SugaredLogger { return L().Sugar() }

// Sync flushea buffers pendientes. Pensado para defer en main.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		return nil
	}
	return instance.Sync()
}
