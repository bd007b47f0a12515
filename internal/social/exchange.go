package social

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

// ExchangeTTL acota la ventana entre el callback OAuth y el canje del code
// por tokens reales.
const ExchangeTTL = 2 * time.Minute

const exchangePrefix = "social:exchange:"

// ExchangeGrant es lo que el callback deja listo para canjear: el principal
// ya reconciliado por el linking.
type ExchangeGrant struct {
	PrincipalID string                 `json:"principal_id"`
	Scope       repository.TenantScope `json:"scope"`
	Provider    string                 `json:"provider"`
}

// ExchangeCodes emite y canjea los codes opacos de un solo uso que viajan en
// el redirect al frontend. El grant vive en cache con TTL corto; TakeOnce
// garantiza canje único incluso bajo doble submit.
type ExchangeCodes struct {
	cache cache.Client
}

func NewExchangeCodes(c cache.Client) *ExchangeCodes {
	return &ExchangeCodes{cache: c}
}

// Issue guarda el grant y retorna el code opaco (256 bits, una sola vez).
func (e *ExchangeCodes) Issue(ctx context.Context, grant ExchangeGrant) (string, error) {
	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", fmt.Errorf("generate exchange code: %w", err)
	}
	payload, err := json.Marshal(grant)
	if err != nil {
		return "", fmt.Errorf("marshal grant: %w", err)
	}
	key := exchangePrefix + tokens.SHA256Base64URL(raw)
	if err := e.cache.Set(ctx, key, payload, ExchangeTTL); err != nil {
		return "", fmt.Errorf("store grant: %w", err)
	}
	return raw, nil
}

// Redeem canjea el code. Codes desconocidos, vencidos o ya canjeados fallan
// igual: unauthorized genérico.
func (e *ExchangeCodes) Redeem(ctx context.Context, raw string) (*ExchangeGrant, error) {
	key := exchangePrefix + tokens.SHA256Base64URL(raw)
	val, found, err := e.cache.TakeOnce(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("redeem exchange code: %w", err)
	}
	if !found {
		return nil, repository.ErrUnauthorized
	}
	var grant ExchangeGrant
	if err := json.Unmarshal(val, &grant); err != nil {
		return nil, repository.ErrUnauthorized
	}
	return &grant, nil
}
