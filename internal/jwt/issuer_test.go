package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func devIssuer(t *testing.T) *Issuer {
	t.Helper()
	ks, err := NewDevRSA()
	if err != nil {
		t.Fatal(err)
	}
	return NewIssuer("https://auth.example.com", ks)
}

func TestMintVerify_RoundTrip(t *testing.T) {
	iss := devIssuer(t)
	tok, exp, err := iss.Mint(MintSpec{Subject: "user-1", Type: TypeEndUser, Extra: map[string]any{"pid": "proj-1"}})
	if err != nil {
		t.Fatal(err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("exp in the past")
	}
	claims, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims["sub"] != "user-1" || claims["typ"] != "user" || claims["pid"] != "proj-1" {
		t.Fatalf("claims = %v", claims)
	}
	if _, ok := claims["role"]; ok {
		t.Fatal("role claim must be absent for end users")
	}
}

func TestMint_OrgMemberCarriesRole(t *testing.T) {
	iss := devIssuer(t)
	tok, _, err := iss.Mint(MintSpec{Subject: "member-1", Type: TypeOrgMember, Role: "owner"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := iss.Verify(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims["typ"] != "member" || claims["role"] != "owner" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestVerify_Reasons(t *testing.T) {
	iss := devIssuer(t)

	// expirado
	short := *iss
	short.AccessTTL = -time.Minute
	expired, _, err := short.Mint(MintSpec{Subject: "u", Type: TypeEndUser})
	if err != nil {
		t.Fatal(err)
	}
	assertReason(t, iss, expired, ReasonExpired)

	// firmado por otra clave
	other := devIssuer(t)
	other.Iss = iss.Iss
	foreign, _, err := other.Mint(MintSpec{Subject: "u", Type: TypeEndUser})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := iss.Verify(foreign); err == nil {
		t.Fatal("foreign-signed token must fail")
	}

	// malformado
	assertReason(t, iss, "not-a-jwt", ReasonMalformed)

	// issuer equivocado
	wrongIss := NewIssuer("https://other.example.com", iss.Keys)
	tok, _, err := wrongIss.Mint(MintSpec{Subject: "u", Type: TypeEndUser})
	if err != nil {
		t.Fatal(err)
	}
	assertReason(t, iss, tok, ReasonBadIssuer)

	// typ desconocido
	raw := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, jwtv5.MapClaims{
		"iss": iss.Iss, "sub": "u", "exp": time.Now().Add(time.Minute).Unix(), "typ": "robot",
	})
	raw.Header["kid"] = iss.Keys.KID
	signed, err := raw.SignedString(iss.Keys.Priv)
	if err != nil {
		t.Fatal(err)
	}
	assertReason(t, iss, signed, ReasonUnsupported)
}

func assertReason(t *testing.T, iss *Issuer, token string, want Reason) {
	t.Helper()
	_, err := iss.Verify(token)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("want *VerifyError, got %v", err)
	}
	if ve.Reason != want {
		t.Fatalf("reason = %s, want %s", ve.Reason, want)
	}
}

func TestComputeKID_StableAndShort(t *testing.T) {
	ks, err := NewDevRSA()
	if err != nil {
		t.Fatal(err)
	}
	k1, err := ComputeKID(ks.Pub)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := ComputeKID(ks.Pub)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatal("kid must be deterministic")
	}
	raw, err := base64.RawURLEncoding.DecodeString(k1)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 8 {
		t.Fatalf("kid decodes to %d bytes, want 8", len(raw))
	}
}

func TestJWKS_Shape(t *testing.T) {
	ks, err := NewDevRSA()
	if err != nil {
		t.Fatal(err)
	}
	var set JWKS
	if err := json.Unmarshal(ks.JWKSJSON(), &set); err != nil {
		t.Fatal(err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("keys = %d", len(set.Keys))
	}
	k := set.Keys[0]
	if k.Kty != "RSA" || k.Use != "sig" || k.Alg != "RS256" || k.Kid != ks.KID {
		t.Fatalf("jwk = %+v", k)
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		t.Fatal(err)
	}
	if len(n) == 0 || n[0] == 0 {
		t.Fatal("n must be big-endian without leading zero byte")
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		t.Fatal(err)
	}
	if len(e) == 0 || e[0] == 0 {
		t.Fatal("e must have leading zeros stripped")
	}
}

func TestJWKSCache_SingleflightRefresh(t *testing.T) {
	var builds atomic.Int32
	c := NewJWKSCache(time.Hour, func() ([]byte, error) {
		builds.Add(1)
		time.Sleep(10 * time.Millisecond) // ensancha la ventana de miss
		return []byte(`{"keys":[]}`), nil
	})

	const n = 16
	done := make(chan error, n)
	for g := 0; g < n; g++ {
		go func() {
			_, err := c.Get()
			done <- err
		}()
	}
	for g := 0; g < n; g++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
	if got := builds.Load(); got != 1 {
		t.Fatalf("build called %d times, want 1", got)
	}

	c.Invalidate()
	if _, err := c.Get(); err != nil {
		t.Fatal(err)
	}
	if got := builds.Load(); got != 2 {
		t.Fatalf("build after invalidate = %d, want 2", got)
	}
}
