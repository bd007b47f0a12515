// Package social implementa el login con providers externos: la decisión de
// account linking, el registry de providers y los exchange codes de un solo
// uso que canjea el frontend por tokens reales.
package social

import (
	"fmt"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

// Action es el veredicto del linking.
type Action int

const (
	// ActionUseExisting reutiliza el principal de una conexión ya existente.
	ActionUseExisting Action = iota
	// ActionLink crea una conexión nueva hacia un principal verificado que ya
	// posee el email.
	ActionLink
	// ActionCreate pide crear un principal nuevo más su conexión.
	ActionCreate
)

// Identity es lo que el provider asevera sobre el usuario externo.
type Identity struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	DisplayName    string
}

// Input reúne la identidad externa y los dos lookups que el caller ya hizo:
// la conexión existente por (scope, provider, provider_user_id) y el
// principal con email verificado que posea ese email (nil si no hay).
type Input struct {
	Scope      repository.TenantScope
	Identity   Identity
	Connection *repository.OAuthConnection
	EmailOwner *repository.Principal
}

// EmailUpdate es un cambio de email/verificación pendiente de ejecutar.
type EmailUpdate struct {
	Email    string
	Verified bool
}

// NewPrincipalSpec describe el principal a crear cuando no hay match.
type NewPrincipalSpec struct {
	Scope         repository.TenantScope
	Email         string
	EmailVerified bool
	DisplayName   string
}

// Decision describe las escrituras que el caller debe ejecutar en una sola
// transacción. Decide no escribe nada.
type Decision struct {
	Action      Action
	PrincipalID string // UseExisting | Link

	// UpdateConnectionEmail: el email del provider cambió respecto del que
	// guarda la conexión (solo UseExisting).
	UpdateConnectionEmail bool

	// StagePrincipalEmail: actualización de email/verificación a aplicar
	// sobre el principal (nil si no corresponde).
	StagePrincipalEmail *EmailUpdate

	// NewPrincipal solo con ActionCreate.
	NewPrincipal *NewPrincipalSpec
}

// Decide resuelve cómo reconciliar una identidad externa con los principals
// del tenant. Lógica pura sin I/O.
//
// Un email no verificado del provider jamás puede capturar una cuenta con
// email verificado: ese caso corta con ErrConflict.
func Decide(in Input) (*Decision, error) {
	email := repository.NormalizeEmail(in.Identity.Email)
	if in.Identity.Provider == "" || in.Identity.ProviderUserID == "" {
		return nil, fmt.Errorf("%w: incomplete external identity", repository.ErrInvalidInput)
	}

	if in.Connection != nil {
		d := &Decision{
			Action:      ActionUseExisting,
			PrincipalID: in.Connection.PrincipalID,
		}
		if email != "" && email != repository.NormalizeEmail(in.Connection.Email) {
			d.UpdateConnectionEmail = true
			d.StagePrincipalEmail = &EmailUpdate{Email: email, Verified: in.Identity.EmailVerified}
		} else if in.Identity.EmailVerified {
			// El provider ahora asevera verificación: propagarla al principal
			// si este aún no la tiene. El caller saltea la escritura si ya
			// estaba verificado.
			d.StagePrincipalEmail = &EmailUpdate{Email: email, Verified: true}
		}
		return d, nil
	}

	if in.EmailOwner != nil {
		if !in.Identity.EmailVerified {
			// Takeover defense: un email look-alike sin verificar no se
			// vincula a una cuenta verificada existente.
			return nil, fmt.Errorf("%w: unverified provider email collides with verified account", repository.ErrConflict)
		}
		return &Decision{
			Action:              ActionLink,
			PrincipalID:         in.EmailOwner.ID,
			StagePrincipalEmail: &EmailUpdate{Email: email, Verified: true},
		}, nil
	}

	return &Decision{
		Action: ActionCreate,
		NewPrincipal: &NewPrincipalSpec{
			Scope:         in.Scope,
			Email:         email,
			EmailVerified: in.Identity.EmailVerified,
			DisplayName:   in.Identity.DisplayName,
		},
	}, nil
}
