package totp

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alfabeto de recovery codes: alfanumérico sin caracteres visualmente
// ambiguos (0/O, 1/I/L).
const recoveryAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RecoveryCodeCount es la cantidad fija de codes por setup.
const RecoveryCodeCount = 10

const (
	recoveryGroups    = 4
	recoveryGroupSize = 10
)

// GenerateRecoveryCodes genera RecoveryCodeCount codes con formato
// XXXXXXXXXX-XXXXXXXXXX-XXXXXXXXXX-XXXXXXXXXX (cuatro grupos de diez).
// Los codes son de un solo uso y se persisten solo hasheados.
func GenerateRecoveryCodes() ([]string, error) {
	out := make([]string, 0, RecoveryCodeCount)
	for i := 0; i < RecoveryCodeCount; i++ {
		c, err := generateRecoveryCode()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func generateRecoveryCode() (string, error) {
	n := recoveryGroups * recoveryGroupSize
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	chars := make([]byte, n)
	for i, b := range buf {
		chars[i] = recoveryAlphabet[int(b)%len(recoveryAlphabet)]
	}
	groups := make([]string, 0, recoveryGroups)
	for g := 0; g < recoveryGroups; g++ {
		groups = append(groups, string(chars[g*recoveryGroupSize:(g+1)*recoveryGroupSize]))
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeRecoveryCode lleva un code a forma canónica antes de hashear:
// mayúsculas, sin separadores ni espacios.
func NormalizeRecoveryCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}

// FormatRecoveryCode re-agrupa un code normalizado para display.
func FormatRecoveryCode(normalized string) (string, error) {
	if len(normalized) != recoveryGroups*recoveryGroupSize {
		return "", fmt.Errorf("recovery code length %d", len(normalized))
	}
	groups := make([]string, 0, recoveryGroups)
	for g := 0; g < recoveryGroups; g++ {
		groups = append(groups, normalized[g*recoveryGroupSize:(g+1)*recoveryGroupSize])
	}
	return strings.Join(groups, "-"), nil
}
