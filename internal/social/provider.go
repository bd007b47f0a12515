package social

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

// Provider abstrae un identity provider externo. Cada implementación resuelve
// el intercambio de authorization code y la identidad aseverada.
type Provider interface {
	// Name es el identificador estable del provider ("google", "github").
	Name() string

	// AuthURL construye la URL de autorización para iniciar el flujo.
	AuthURL(ctx context.Context, state, nonce string) (string, error)

	// FetchIdentity canjea el authorization code y retorna la identidad
	// externa verificada contra el provider.
	FetchIdentity(ctx context.Context, code, nonce string) (*Identity, error)
}

// Registry mantiene los providers configurados. Registro duplicado es error:
// dos providers con el mismo nombre son un bug de configuración.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register agrega un provider. Falla con ErrConflict si el nombre ya existe.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("%w: provider %q already registered", repository.ErrConflict, name)
	}
	r.providers[name] = p
	return nil
}

// Get busca un provider por nombre. ErrNotFound si no está configurado.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q", repository.ErrNotFound, name)
	}
	return p, nil
}

// Names lista los providers registrados, ordenados.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
