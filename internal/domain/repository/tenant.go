package repository

import (
	"context"
	"time"
)

// Organization es el tenant raíz.
type Organization struct {
	ID        string
	Name      string
	Slug      string // único global
	CreatedAt time.Time
}

// Project pertenece a una organización. Cada proyecto expone dos
// environments implícitos: "prod" y "dev".
type Project struct {
	ID        string
	OrgID     string
	Name      string
	Slug      string // único dentro de la org
	CreatedAt time.Time
}

// TenantRepository define el CRUD mínimo de organizaciones y proyectos que
// el core necesita para resolver scopes. El CRUD completo vive fuera del core.
type TenantRepository interface {
	// CreateOrg persiste una organización. ErrConflict si el slug está tomado.
	CreateOrg(ctx context.Context, o *Organization) error

	// GetOrg busca por id. Retorna ErrNotFound si no existe.
	GetOrg(ctx context.Context, id string) (*Organization, error)

	// CreateProject persiste un proyecto. ErrConflict si el slug está tomado
	// dentro de la org.
	CreateProject(ctx context.Context, p *Project) error

	// GetProject busca por id. Retorna ErrNotFound si no existe.
	GetProject(ctx context.Context, id string) (*Project, error)
}
