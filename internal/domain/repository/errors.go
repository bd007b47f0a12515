package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	// Lookups tenant-scoped retornan ErrNotFound aunque el id exista en otro
	// tenant: el aislamiento no se filtra por mensajes de error.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto de unicidad (email/slug/nombre duplicado
	// dentro de su scope, o el conflicto OAuth email-no-verificado vs cuenta
	// verificada).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos
	// (malformados o en violación de policy).
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized es el fallo genérico de autenticación. Credenciales
	// malas, tokens inválidos/expirados y api keys revocadas colapsan acá
	// antes de cualquier boundary externo, para no habilitar enumeración.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSecurity indica un fallo criptográfico (decrypt/firma). Nunca se
	// distingue la causa interna.
	ErrSecurity = errors.New("security failure")

	// ErrLocked indica que la cuenta está bloqueada por intentos fallidos.
	ErrLocked = errors.New("account locked")

	// ErrRateLimited indica que se excedió el límite de requests.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotImplemented indica que la operación no está soportada por este driver.
	ErrNotImplemented = errors.New("not implemented")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnauthorized verifica si el error es ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
