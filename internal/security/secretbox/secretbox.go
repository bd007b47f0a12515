// Package secretbox cifra secretos en reposo (semillas TOTP, material
// sensible) con AES-256-GCM bajo una clave maestra que solo viaja por env.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	envVar    = "SECRETBOX_MASTER_KEY"
	nonceSize = 12 // GCM estándar (96 bits)
	keySize   = 32 // AES-256
	tagSize   = 16
)

// ErrCipher es el ÚNICO error que sale de Decrypt. Tampering, clave
// equivocada e input malformado colapsan acá: no damos oráculo.
var ErrCipher = errors.New("secretbox: decrypt failed")

type keyState struct {
	mu   sync.RWMutex
	once sync.Once
	key  []byte
	err  error
}

var state keyState

func (s *keyState) load() error {
	s.once.Do(func() {
		raw := strings.TrimSpace(os.Getenv(envVar))
		if raw == "" {
			s.err = fmt.Errorf("%s no seteada; generar con: authcore gen-secretbox", envVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			s.err = fmt.Errorf("decode %s: %w", envVar, err)
			return
		}
		if len(k) != keySize {
			s.err = fmt.Errorf("%s: se requieren %d bytes, hay %d", envVar, keySize, len(k))
			return
		}
		s.set(k)
	})
	return s.err
}

func (s *keyState) set(k []byte) {
	s.mu.Lock()
	s.key = append([]byte(nil), k...)
	s.mu.Unlock()
}

func (s *keyState) aead() (cipher.AEAD, error) {
	s.mu.RLock()
	k := append([]byte(nil), s.key...)
	s.mu.RUnlock()
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// MustLoad fuerza la carga de la clave maestra. Un proceso sin clave de
// cifrado no debe arrancar; main corta si esto falla.
func MustLoad() error { return state.load() }

// Ready informa si la clave está cargada (healthchecks).
func Ready() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return len(state.key) == keySize
}

// Encrypt cifra plainText y devuelve base64(nonce ‖ ciphertext ‖ tag),
// un solo base64 sobre la concatenación cruda. Nonce fresco por llamada.
func Encrypt(plainText string) (string, error) {
	if err := state.load(); err != nil {
		return "", err
	}
	aead, err := state.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	// Seal anexa el tag al final; prepend del nonce deja todo en un blob.
	blob := aead.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt deshace Encrypt. Cualquier fallo retorna ErrCipher sin distinguir
// la causa.
func Decrypt(cipherText string) (string, error) {
	if err := state.load(); err != nil {
		return "", err
	}
	blob, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil || len(blob) < nonceSize+tagSize {
		return "", ErrCipher
	}
	aead, err := state.aead()
	if err != nil {
		return "", ErrCipher
	}
	pt, err := aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return "", ErrCipher
	}
	return string(pt), nil
}

// --- Helpers para tests ---

// UnsafeResetSecretBoxForTests borra estado interno. Solo tests.
func UnsafeResetSecretBoxForTests() {
	state.mu.Lock()
	state.key = nil
	state.mu.Unlock()
	state.once = sync.Once{}
	state.err = nil
}

// UnsafeSetMasterKeyForTests instala una clave cruda de 32 bytes. Solo tests.
func UnsafeSetMasterKeyForTests(k []byte) error {
	if len(k) != keySize {
		return fmt.Errorf("clave de test inválida: se requieren %d bytes", keySize)
	}
	UnsafeResetSecretBoxForTests()
	state.set(k)
	// Consumir el once: load() no debe pisar la clave instalada leyendo env.
	state.once.Do(func() {})
	return nil
}
