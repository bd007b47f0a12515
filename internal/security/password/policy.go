package password

import "unicode"

// Policy es la política de passwords configurable por tenant.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
	MinUniqueChars int // 0 => sin chequeo
	HistoryCount   int // últimos N hashes contra los que no se puede repetir
}

// DefaultPolicy es la política base cuando el tenant no configura una.
var DefaultPolicy = Policy{
	MinLength:      10,
	RequireUpper:   true,
	RequireLower:   true,
	RequireNumber:  true,
	RequireSpecial: false,
	MinUniqueChars: 4,
	HistoryCount:   3,
}

// Códigos de violación. Validate retorna la lista COMPLETA, no solo el primero.
const (
	ViolationTooShort      = "too_short"
	ViolationMissingUpper  = "missing_upper"
	ViolationMissingLower  = "missing_lower"
	ViolationMissingNumber = "missing_number"
	ViolationMissingSymbol = "missing_symbol"
	ViolationFewUnique     = "too_few_unique_chars"
	ViolationReused        = "reused_recent_password"
	ViolationBlacklisted   = "blacklisted"
)

// Validate evalúa todas las reglas estructurales y retorna cada código violado.
func (p Policy) Validate(s string) (ok bool, violations []string) {
	runes := []rune(s)
	if len(runes) < p.MinLength {
		violations = append(violations, ViolationTooShort)
	}
	var hasU, hasL, hasD, hasS bool
	uniq := map[rune]struct{}{}
	for _, r := range runes {
		uniq[r] = struct{}{}
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		violations = append(violations, ViolationMissingUpper)
	}
	if p.RequireLower && !hasL {
		violations = append(violations, ViolationMissingLower)
	}
	if p.RequireNumber && !hasD {
		violations = append(violations, ViolationMissingNumber)
	}
	if p.RequireSpecial && !hasS {
		violations = append(violations, ViolationMissingSymbol)
	}
	if p.MinUniqueChars > 0 && len(uniq) < p.MinUniqueChars {
		violations = append(violations, ViolationFewUnique)
	}
	return len(violations) == 0, violations
}

// CheckHistory re-hashea el candidato contra los últimos N hashes guardados.
// Retorna true si el password repite alguno dentro del límite de la policy.
func (p Policy) CheckHistory(candidate string, history []string) bool {
	n := p.HistoryCount
	if n <= 0 || len(history) == 0 {
		return false
	}
	if n > len(history) {
		n = len(history)
	}
	for _, phc := range history[:n] {
		if Verify(candidate, phc) {
			return true
		}
	}
	return false
}
