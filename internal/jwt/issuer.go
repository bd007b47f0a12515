package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// TokenType discrimina el tipo de principal en el claim "typ".
type TokenType string

const (
	TypeEndUser   TokenType = "user"
	TypeOrgMember TokenType = "member"
)

// Reason clasifica por qué falló un verify. Es SOLO para logging interno:
// hacia afuera el caller siempre reporta un "unauthorized" genérico.
type Reason string

const (
	ReasonExpired      Reason = "expired"
	ReasonBadSignature Reason = "bad_signature"
	ReasonMalformed    Reason = "malformed"
	ReasonBadIssuer    Reason = "bad_issuer"
	ReasonUnsupported  Reason = "unsupported_claims"
)

// VerifyError lleva la razón interna del fallo.
type VerifyError struct {
	Reason Reason
}

func (e *VerifyError) Error() string { return "jwt: " + string(e.Reason) }

// Issuer firma y verifica access tokens RS256 con la clave activa.
type Issuer struct {
	Iss       string
	Keys      *KeySet
	AccessTTL time.Duration // default 15m
}

func NewIssuer(iss string, ks *KeySet) *Issuer {
	return &Issuer{Iss: iss, Keys: ks, AccessTTL: 15 * time.Minute}
}

// MintSpec describe el token a emitir.
type MintSpec struct {
	Subject string
	Type    TokenType
	Role    string // solo org members
	Extra   map[string]any
}

// Mint emite un access token con claims temporales estándar, el discriminador
// "typ" y "role" cuando aplica.
func (i *Issuer) Mint(spec MintSpec) (string, time.Time, error) {
	if spec.Subject == "" {
		return "", time.Time{}, errors.New("mint: empty subject")
	}
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)

	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": spec.Subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
		"typ": string(spec.Type),
	}
	if spec.Type == TypeOrgMember && spec.Role != "" {
		claims["role"] = spec.Role
	}
	for k, v := range spec.Extra {
		claims[k] = v
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.Keys.Priv)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign: %w", err)
	}
	return signed, exp, nil
}

// Verify chequea firma, issuer y ventana temporal. En fallo retorna un
// *VerifyError con la razón; el caller la loggea y colapsa hacia afuera.
func (i *Issuer) Verify(token string) (map[string]any, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.Keys.KID {
			return nil, errors.New("unknown kid")
		}
		return i.Keys.Pub, nil
	}
	tok, err := jwtv5.Parse(token, keyfunc,
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwtv5.ErrTokenExpired):
			return nil, &VerifyError{Reason: ReasonExpired}
		case errors.Is(err, jwtv5.ErrTokenSignatureInvalid):
			return nil, &VerifyError{Reason: ReasonBadSignature}
		case errors.Is(err, jwtv5.ErrTokenInvalidIssuer):
			return nil, &VerifyError{Reason: ReasonBadIssuer}
		case errors.Is(err, jwtv5.ErrTokenMalformed):
			return nil, &VerifyError{Reason: ReasonMalformed}
		default:
			return nil, &VerifyError{Reason: ReasonUnsupported}
		}
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, &VerifyError{Reason: ReasonUnsupported}
	}
	if typ, _ := claims["typ"].(string); typ != string(TypeEndUser) && typ != string(TypeOrgMember) {
		return nil, &VerifyError{Reason: ReasonUnsupported}
	}
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}
