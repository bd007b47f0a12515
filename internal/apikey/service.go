// Package apikey implementa las credenciales por proyecto+environment que
// gatean cada request de SDK. El secreto crudo existe una sola vez, al crear;
// persiste únicamente su hash SHA-256.
package apikey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

// Prefijos visibles por environment: una key de prod nunca se confunde con
// una de dev a simple vista.
const (
	PrefixProd = "ak_prod_"
	PrefixDev  = "ak_dev_"
)

const secretBytes = 32

// Scope es el tenant resuelto a partir de una key válida.
type Scope struct {
	OrgID       string
	ProjectID   string
	Environment string
	KeyID       string
	KeyName     string
}

// Created es el resultado de crear una key. Raw se muestra una única vez.
type Created struct {
	ID  string
	Raw string
	Key *repository.APIKey
}

// Service crea, resuelve y revoca API keys.
type Service struct {
	repo repository.APIKeyRepository
	log  *zap.Logger
}

func NewService(repo repository.APIKeyRepository) *Service {
	return &Service{repo: repo, log: logger.Named("apikey")}
}

// prefixFor retorna el marcador del environment. Environments válidos:
// "prod" | "dev".
func prefixFor(environment string) (string, error) {
	switch environment {
	case "prod":
		return PrefixProd, nil
	case "dev":
		return PrefixDev, nil
	default:
		return "", fmt.Errorf("%w: environment %q", repository.ErrInvalidInput, environment)
	}
}

// Create genera una key nueva para proyecto+environment. El valor retornado
// en Raw no puede recuperarse después.
func (s *Service) Create(ctx context.Context, orgID, projectID, environment, name string) (*Created, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty key name", repository.ErrInvalidInput)
	}
	prefix, err := prefixFor(environment)
	if err != nil {
		return nil, err
	}

	secret, err := tokens.GenerateOpaqueToken(secretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	raw := prefix + secret

	k := &repository.APIKey{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		ProjectID:   projectID,
		Environment: environment,
		Name:        name,
		Prefix:      prefix,
		SecretHash:  tokens.SHA256Base64URL(raw),
		Status:      repository.APIKeyActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, err
	}

	s.log.Info("api key created",
		logger.OrgID(orgID), logger.ProjectID(projectID),
		logger.Environment(environment), logger.ID(k.ID))
	return &Created{ID: k.ID, Raw: raw, Key: k}, nil
}

// Resolve valida una key cruda y retorna su scope. Keys inexistentes y
// revocadas fallan idéntico: un solo error genérico, sin señal distinguible.
func (s *Service) Resolve(ctx context.Context, rawKey string) (*Scope, error) {
	k, err := s.repo.GetByHash(ctx, tokens.SHA256Base64URL(rawKey))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, repository.ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve lookup: %w", err)
	}
	if k.Status != repository.APIKeyActive {
		return nil, repository.ErrUnauthorized
	}

	// Best effort: un fallo acá no invalida el request.
	if err := s.repo.TouchLastUsed(ctx, k.ID, time.Now().UTC()); err != nil {
		s.log.Debug("touch last_used", logger.ID(k.ID), logger.Err(err))
	}

	return &Scope{
		OrgID:       k.OrgID,
		ProjectID:   k.ProjectID,
		Environment: k.Environment,
		KeyID:       k.ID,
		KeyName:     k.Name,
	}, nil
}

// Revoke invalida una key. Transición única y terminal.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.repo.Revoke(ctx, id); err != nil {
		return err
	}
	s.log.Info("api key revoked", logger.ID(id))
	return nil
}

// RevokeAllByProject invalida todas las keys ACTIVE de un proyecto
// (offboarding, rotación de emergencia).
func (s *Service) RevokeAllByProject(ctx context.Context, projectID string) (int, error) {
	n, err := s.repo.RevokeAllByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("api keys revoked for project", logger.ProjectID(projectID), logger.Count(n))
	}
	return n, nil
}
