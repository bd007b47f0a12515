package jwt

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
)

// JWK es la representación pública RSA de la clave de firma.
type JWK struct {
	Kty string `json:"kty"` // "RSA"
	Use string `json:"use"` // "sig"
	Alg string `json:"alg"` // "RS256"
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url, big-endian, sin ceros a la izquierda
	E   string `json:"e"`
}

// JWKS es el set publicado en /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// b64BigEndian codifica un entero sin signo big-endian en base64url,
// descartando cualquier byte cero inicial.
func b64BigEndian(b []byte) string {
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// BuildJWKS arma el JWKS para una clave pública.
func BuildJWKS(pub *rsa.PublicKey, kid string) JWKS {
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   b64BigEndian(pub.N.Bytes()),
		E:   b64BigEndian(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}

// JWKSJSON serializa el JWKS de la clave activa.
func (k *KeySet) JWKSJSON() []byte {
	b, _ := json.Marshal(BuildJWKS(k.Pub, k.KID))
	return b
}
