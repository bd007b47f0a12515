package totp

import (
	"strings"
	"testing"
	"time"
)

// Vectores RFC 6238 (secreto ASCII "12345678901234567890", SHA-1). El RFC
// publica 8 dígitos; acá se pinnean los 6 finales del mismo truncado dinámico.
func TestGenerateAt_RFCVectors(t *testing.T) {
	secret := []byte("12345678901234567890")
	cases := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, tc := range cases {
		got := GenerateAt(secret, time.Unix(tc.unix, 0))
		if got != tc.want {
			t.Fatalf("GenerateAt(%d) = %s, want %s", tc.unix, got, tc.want)
		}
	}
}

func TestVerify_WindowBounds(t *testing.T) {
	secret := []byte("12345678901234567890")
	now := time.Unix(1111111109, 0)

	// mismo step, ±1 step: aceptan
	for _, delta := range []time.Duration{0, -Period * time.Second, Period * time.Second} {
		code := GenerateAt(secret, now.Add(delta))
		if ok, _ := Verify(secret, code, now, 1, nil); !ok {
			t.Fatalf("code at delta %v must verify within ±1 step", delta)
		}
	}
	// ±2 steps: rechazan con ventana 1
	for _, delta := range []time.Duration{-2 * Period * time.Second, 2 * Period * time.Second} {
		code := GenerateAt(secret, now.Add(delta))
		if ok, _ := Verify(secret, code, now, 1, nil); ok {
			t.Fatalf("code at delta %v must NOT verify within ±1 step", delta)
		}
	}
}

func TestVerify_AntiReplay(t *testing.T) {
	secret := []byte("12345678901234567890")
	now := time.Unix(1111111109, 0)
	code := GenerateAt(secret, now)

	ok, counter := Verify(secret, code, now, 1, nil)
	if !ok {
		t.Fatal("first use must verify")
	}
	// mismo código con counter ya consumido: rechaza
	if ok, _ := Verify(secret, code, now, 1, &counter); ok {
		t.Fatal("replayed code must be rejected")
	}
}

func TestVerify_RejectsBadInput(t *testing.T) {
	secret := []byte("12345678901234567890")
	now := time.Now()
	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		if ok, _ := Verify(secret, code, now, 1, nil); ok {
			t.Fatalf("code %q must not verify", code)
		}
	}
}

func TestGenerateSecret_Base32NoPadding(t *testing.T) {
	raw, b32, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 20 {
		t.Fatalf("secret len = %d, want 20 bytes", len(raw))
	}
	if strings.Contains(b32, "=") {
		t.Fatalf("base32 must have no padding: %s", b32)
	}
	back, err := DecodeSecret(b32)
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != string(raw) {
		t.Fatal("decode mismatch")
	}
}

func TestGenerateRecoveryCodes_FormatAndAlphabet(t *testing.T) {
	codes, err := GenerateRecoveryCodes()
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != RecoveryCodeCount {
		t.Fatalf("got %d codes, want %d", len(codes), RecoveryCodeCount)
	}
	seen := map[string]bool{}
	for _, c := range codes {
		groups := strings.Split(c, "-")
		if len(groups) != 4 {
			t.Fatalf("code %q: want 4 groups", c)
		}
		for _, g := range groups {
			if len(g) != 10 {
				t.Fatalf("code %q: group %q len != 10", c, g)
			}
			for _, r := range g {
				if !strings.ContainsRune(recoveryAlphabet, r) {
					t.Fatalf("code %q: char %q outside alphabet", c, r)
				}
			}
		}
		if seen[c] {
			t.Fatalf("duplicated recovery code %q", c)
		}
		seen[c] = true
	}
}

func TestNormalizeRecoveryCode(t *testing.T) {
	in := " abCDefghjk-MNPQRSTUVW-XYZ2345678-9ABCDEFGHJ "
	want := "ABCDEFGHJKMNPQRSTUVWXYZ23456789ABCDEFGHJ"
	if got := NormalizeRecoveryCode(in); got != want {
		t.Fatalf("normalize = %q, want %q", got, want)
	}
	formatted, err := FormatRecoveryCode(want)
	if err != nil {
		t.Fatal(err)
	}
	if formatted != "ABCDEFGHJK-MNPQRSTUVW-XYZ2345678-9ABCDEFGHJ" {
		t.Fatalf("format = %q", formatted)
	}
}
