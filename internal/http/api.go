package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/authcore/internal/authflow"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type apiError struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	ErrorCode        int      `json:"error_code,omitempty"`
	Violations       []string `json:"violations,omitempty"`
	RequestID        string   `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string, errCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		ErrorCode:        errCode,
		RequestID:        rid,
	})
}

// WriteDomainError mapea los errores centinela del dominio a respuestas HTTP.
// Todo lo que no reconoce cae a 500 genérico: nunca filtramos detalles internos.
func WriteDomainError(w http.ResponseWriter, err error) {
	var pe *authflow.PolicyError
	if errors.As(err, &pe) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiError{
			Error:            "password_policy",
			ErrorDescription: "la contraseña no cumple la política",
			ErrorCode:        1201,
			Violations:       pe.Violations,
			RequestID:        w.Header().Get("X-Request-ID"),
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "credenciales inválidas", 1101)
	case errors.Is(err, repository.ErrLocked):
		WriteError(w, http.StatusLocked, "account_locked", "cuenta bloqueada temporalmente", 1103)
	case errors.Is(err, repository.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "demasiadas solicitudes", 1104)
	case errors.Is(err, repository.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "el recurso ya existe", 1105)
	case errors.Is(err, repository.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_request", "solicitud inválida", 1106)
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "recurso no encontrado", 1107)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "error interno", 1100)
	}
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON: decodifica JSON de forma tolerante (NO falla por campos desconocidos).
// Valida Content-Type y limita el tamaño del body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json", 1102)
		return false
	}
	// máx 1MB
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido", 1102)
		return false
	}
	return true
}
