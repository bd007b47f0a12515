// Package events define el bus de salida del core: los flujos producen
// eventos ("user registered", "password reset requested") y algún sink
// externo los entrega. El core nunca entrega nada por sí mismo.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

// Type identifica la clase de evento.
type Type string

const (
	TypeUserRegistered         Type = "user.registered"
	TypePasswordResetRequested Type = "password.reset_requested"
	TypePasswordChanged        Type = "password.changed"
	TypeMFAEnabled             Type = "mfa.enabled"
	TypeMFADisabled            Type = "mfa.disabled"
	TypeTokenReplayDetected    Type = "token.replay_detected"
	TypeAccountLocked          Type = "account.locked"
)

// Event es el payload común. Data lleva lo específico de cada tipo (el token
// de reset, por ejemplo) y nunca debe contener secretos de larga vida.
type Event struct {
	Type        Type
	PrincipalID string
	Scope       repository.TenantScope
	Email       string
	At          time.Time
	Data        map[string]string
}

// Publisher entrega eventos a un sink externo. Las implementaciones no deben
// bloquear el flujo que publica más de lo imprescindible.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop descarta todo. Default cuando no hay sink configurado.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Memory acumula eventos en memoria, para tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events retorna una copia de lo publicado hasta ahora.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByType filtra lo publicado por tipo.
func (m *Memory) ByType(t Type) []Event {
	var out []Event
	for _, ev := range m.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
