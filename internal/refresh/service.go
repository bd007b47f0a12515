// Package refresh implementa la máquina de estados de refresh tokens:
// ACTIVE → ROTATED (con sucesor) | REVOKED (terminal). Los valores crudos
// nunca se persisten; solo su hash SHA-256.
package refresh

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/events"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

// DefaultTTL es la vida útil de un refresh token.
const DefaultTTL = 30 * 24 * time.Hour

// rawBytes: 32 bytes => 256 bits de entropía por token.
const rawBytes = 32

// Meta es la metadata de emisión que acompaña a cada token.
type Meta struct {
	IP        string
	UserAgent string
}

// Issued es el resultado de emitir o rotar: el valor crudo existe solo acá,
// una única vez.
type Issued struct {
	Raw   string
	Token *repository.RefreshToken
}

// Service orquesta emisión, rotación y revocación de refresh tokens.
type Service struct {
	repo   repository.RefreshTokenRepository
	events events.Publisher
	ttl    time.Duration
	log    *zap.Logger
}

func NewService(repo repository.RefreshTokenRepository) *Service {
	return &Service{
		repo:   repo,
		events: events.Noop{},
		ttl:    DefaultTTL,
		log:    logger.Named("refresh"),
	}
}

// WithTTL ajusta la vida útil (tests, configs por tenant).
func (s *Service) WithTTL(ttl time.Duration) *Service {
	s.ttl = ttl
	return s
}

// WithEvents conecta el sink del evento token.replay_detected.
func (s *Service) WithEvents(p events.Publisher) *Service {
	s.events = p
	return s
}

// Issue crea un token ACTIVE nuevo para el principal.
func (s *Service) Issue(ctx context.Context, principalID string, meta Meta) (*Issued, error) {
	return s.mint(ctx, principalID, nil, meta)
}

// Rotate canjea un token crudo por su sucesor. Un token que no está ACTIVE
// (inexistente, vencido, revocado) falla con el error genérico. Presentar un
// token ya ROTATED es señal de compromiso: se revoca la cadena completa.
// De N llamadas concurrentes sobre el mismo token gana exactamente una.
func (s *Service) Rotate(ctx context.Context, rawToken string, meta Meta) (*Issued, error) {
	hash := tokens.SHA256Base64URL(rawToken)

	cur, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, repository.ErrUnauthorized
		}
		return nil, fmt.Errorf("rotate lookup: %w", err)
	}

	now := time.Now().UTC()

	switch {
	case cur.Status == repository.TokenRotated:
		// Replay: el token ya fue canjeado una vez. Quemamos la cadena entera.
		metrics.TokenReplays.Inc()
		n, rerr := s.repo.RevokeChain(ctx, cur.ID)
		if rerr != nil {
			s.log.Error("revoke chain after replay", logger.ID(cur.ID), logger.Err(rerr))
		} else {
			s.log.Warn("refresh token replay detected, chain revoked",
				logger.PrincipalID(cur.PrincipalID), logger.ID(cur.ID), logger.Count(n))
		}
		if s.events != nil {
			ev := events.Event{
				Type:        events.TypeTokenReplayDetected,
				PrincipalID: cur.PrincipalID,
				At:          now,
				Data:        map[string]string{"revoked": strconv.Itoa(n)},
			}
			if perr := s.events.Publish(ctx, ev); perr != nil {
				s.log.Warn("event publish failed", logger.Err(perr))
			}
		}
		return nil, repository.ErrUnauthorized

	case cur.Status != repository.TokenActive:
		return nil, repository.ErrUnauthorized

	case now.After(cur.ExpiresAt):
		return nil, repository.ErrUnauthorized
	}

	successorID := uuid.NewString()
	won, err := s.repo.MarkRotated(ctx, cur.ID, successorID)
	if err != nil {
		return nil, fmt.Errorf("mark rotated: %w", err)
	}
	if !won {
		// Perdimos la carrera contra otro rotate: fail closed, sin tocar la
		// cadena (el ganador legítimo ya tiene el sucesor).
		return nil, repository.ErrUnauthorized
	}

	issued, err := s.mintWithID(ctx, successorID, cur.PrincipalID, &cur.ID, meta)
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Revoke marca REVOKED el token que corresponde al valor crudo. Idempotente:
// revocar un token ya revocado o inexistente no es error.
func (s *Service) Revoke(ctx context.Context, rawToken string) error {
	hash := tokens.SHA256Base64URL(rawToken)
	t, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("revoke lookup: %w", err)
	}
	return s.repo.Revoke(ctx, t.ID)
}

// RevokeAllForPrincipal revoca todos los tokens ACTIVE del principal
// (logout global, MFA disable, evento de seguridad).
func (s *Service) RevokeAllForPrincipal(ctx context.Context, principalID string) (int, error) {
	n, err := s.repo.RevokeAllByPrincipal(ctx, principalID)
	if err != nil {
		return 0, fmt.Errorf("revoke all: %w", err)
	}
	if n > 0 {
		s.log.Info("revoked all refresh tokens", logger.PrincipalID(principalID), logger.Count(n))
	}
	return n, nil
}

// PruneExpired poda tokens vencidos. Pensado para un cron/comando admin.
func (s *Service) PruneExpired(ctx context.Context) (int, error) {
	return s.repo.DeleteExpired(ctx, time.Now().UTC())
}

func (s *Service) mint(ctx context.Context, principalID string, parentID *string, meta Meta) (*Issued, error) {
	return s.mintWithID(ctx, uuid.NewString(), principalID, parentID, meta)
}

func (s *Service) mintWithID(ctx context.Context, id, principalID string, parentID *string, meta Meta) (*Issued, error) {
	raw, err := tokens.GenerateOpaqueToken(rawBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := time.Now().UTC()
	t := &repository.RefreshToken{
		ID:          id,
		PrincipalID: principalID,
		TokenHash:   tokens.SHA256Base64URL(raw),
		Status:      repository.TokenActive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
		ParentID:    parentID,
	}
	if meta.IP != "" {
		t.IP = &meta.IP
	}
	if meta.UserAgent != "" {
		t.UserAgent = &meta.UserAgent
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	return &Issued{Raw: raw, Token: t}, nil
}
