package secretbox

import (
	"encoding/base64"
	"errors"
	"os"
	"testing"
)

func testKey(seed byte) []byte {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return raw
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	// Sin t.Parallel() por el reset global
	if err := UnsafeSetMasterKeyForTests(testKey(1)); err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{"", "x", "hola mundo ✓ — secreto", "JBSWY3DPEHPK3PXP"} {
		ct, err := Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt(%q) err: %v", msg, err)
		}
		pt, err := Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt err: %v", err)
		}
		if pt != msg {
			t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
		}
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	if err := UnsafeSetMasterKeyForTests(testKey(7)); err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		ct, err := Encrypt("same plaintext")
		if err != nil {
			t.Fatal(err)
		}
		raw, err := base64.StdEncoding.DecodeString(ct)
		if err != nil {
			t.Fatal(err)
		}
		nonce := string(raw[:12])
		if seen[nonce] {
			t.Fatalf("nonce repetido en la muestra %d", i)
		}
		seen[nonce] = true
	}
}

func TestDecrypt_CollapsesAllFailures(t *testing.T) {
	if err := UnsafeSetMasterKeyForTests(testKey(50)); err != nil {
		t.Fatal(err)
	}
	ct, err := Encrypt("top secret")
	if err != nil {
		t.Fatal(err)
	}

	// tamper: flip de un byte del ciphertext
	raw, _ := base64.StdEncoding.DecodeString(ct)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	cases := map[string]string{
		"tampered":   tampered,
		"not base64": "!!!not-base64!!!",
		"too short":  base64.StdEncoding.EncodeToString([]byte("short")),
		"empty":      "",
	}
	for name, in := range cases {
		if _, err := Decrypt(in); !errors.Is(err, ErrCipher) {
			t.Fatalf("%s: want ErrCipher, got %v", name, err)
		}
	}

	// clave equivocada => mismo error genérico
	if err := UnsafeSetMasterKeyForTests(testKey(99)); err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(ct); !errors.Is(err, ErrCipher) {
		t.Fatalf("wrong key: want ErrCipher, got %v", err)
	}
}

func TestUnsafeSetMasterKey_WorksWithoutEnv(t *testing.T) {
	// La clave instalada a mano debe valer para todas las llamadas
	// siguientes aunque SECRETBOX_MASTER_KEY no exista: load() no puede
	// pisarla releyendo el entorno.
	os.Unsetenv("SECRETBOX_MASTER_KEY")
	if err := UnsafeSetMasterKeyForTests(testKey(3)); err != nil {
		t.Fatal(err)
	}
	ct, err := Encrypt("sin env")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	pt, err := Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt err: %v", err)
	}
	if pt != "sin env" {
		t.Fatalf("plaintext mismatch: %q", pt)
	}
}

func TestMustLoad_FailsWithoutKey(t *testing.T) {
	UnsafeResetSecretBoxForTests()
	os.Unsetenv("SECRETBOX_MASTER_KEY")
	if err := MustLoad(); err == nil {
		t.Fatalf("expected error when key missing")
	}
}

func TestMustLoad_FailsOnShortKey(t *testing.T) {
	UnsafeResetSecretBoxForTests()
	os.Setenv("SECRETBOX_MASTER_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	defer os.Unsetenv("SECRETBOX_MASTER_KEY")
	if err := MustLoad(); err == nil {
		t.Fatalf("expected error for 5-byte key")
	}
}
