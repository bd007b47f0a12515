package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// KeySet mantiene la única clave de firma activa del proceso, inmutable
// después del arranque. Rotación multi-clave queda fuera: el verify por kid
// deja la puerta abierta.
type KeySet struct {
	Priv *rsa.PrivateKey
	Pub  *rsa.PublicKey
	KID  string
	Alg  string // "RS256"
}

// ComputeKID deriva un key id estable: primeros 8 bytes del SHA-256 del
// public key DER (PKIX), en base64url sin padding. Verificadores externos
// pueden cachear por kid.
func ComputeKID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:8]), nil
}

// LoadKeySetFromPEM lee una clave privada RSA (PKCS#1 o PKCS#8) desde un
// archivo PEM. El arranque debe abortar si la clave falta o es inválida.
func LoadKeySetFromPEM(path string) (*KeySet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	return ParseKeySetPEM(raw)
}

// ParseKeySetPEM parsea el PEM de la clave privada y arma el KeySet.
func ParseKeySetPEM(raw []byte) (*KeySet, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("signing key: no PEM block")
	}
	var priv *rsa.PrivateKey
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		priv = k
	} else if k8, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rk, ok := k8.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("signing key: not an RSA key")
		}
		priv = rk
	} else {
		return nil, errors.New("signing key: unparseable PEM")
	}
	if bits := priv.N.BitLen(); bits < 2048 {
		return nil, fmt.Errorf("signing key: %d bits, need >= 2048", bits)
	}
	kid, err := ComputeKID(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeySet{Priv: priv, Pub: &priv.PublicKey, KID: kid, Alg: "RS256"}, nil
}

// NewDevRSA genera una clave RSA-2048 en memoria (dev y tests).
func NewDevRSA() (*KeySet, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	kid, err := ComputeKID(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeySet{Priv: priv, Pub: &priv.PublicKey, KID: kid, Alg: "RS256"}, nil
}

// EncodePrivatePEM serializa la clave privada en PKCS#8 PEM (cmd/keys).
func (k *KeySet) EncodePrivatePEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.Priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
