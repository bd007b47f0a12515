package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/apikey"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/rate"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestWithRequestID_PropagatesClientHeader(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "rid-123")
	h.ServeHTTP(rec, req)

	assert.Equal(t, "rid-123", seen)
	assert.Equal(t, "rid-123", rec.Header().Get("X-Request-ID"))
}

func TestWithRequestID_GeneratesWhenAbsent(t *testing.T) {
	h := Chain(okHandler(), WithRequestID())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 32)
}

func TestRequireAPIKey_ResolvesScopeIntoContext(t *testing.T) {
	svc := apikey.NewService(memory.New().APIKeys())
	created, err := svc.Create(context.Background(), "org1", "proj1", "dev", "backend")
	require.NoError(t, err)

	var got *apikey.Scope
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetAPIKeyScope(r.Context())
	}), RequireAPIKey(svc))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", created.Raw)
	h.ServeHTTP(rec, req)

	require.NotNil(t, got)
	assert.Equal(t, "org1", got.OrgID)
	assert.Equal(t, "proj1", got.ProjectID)
	assert.Equal(t, "dev", got.Environment)
}

func TestRequireAPIKey_MissingAndBogusFailAlike(t *testing.T) {
	svc := apikey.NewService(memory.New().APIKeys())
	h := Chain(okHandler(), RequireAPIKey(svc))

	for _, key := range []string{"", "ak_dev_nope"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuth_ValidBearerExposesPrincipal(t *testing.T) {
	ks, err := jwtx.NewDevRSA()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer("https://auth.test", ks)
	tok, _, err := issuer.Mint(jwtx.MintSpec{Subject: "p-1", Type: jwtx.TypeEndUser})
	require.NoError(t, err)

	var pid string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pid = GetPrincipalID(r.Context())
	}), RequireAuth(issuer))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)

	assert.Equal(t, "p-1", pid)
}

func TestRequireAuth_RejectsMissingAndGarbage(t *testing.T) {
	ks, err := jwtx.NewDevRSA()
	require.NoError(t, err)
	h := Chain(okHandler(), RequireAuth(jwtx.NewIssuer("https://auth.test", ks)))

	for _, header := range []string{"", "Bearer garbage", "Basic abc"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
	}
}

func TestRequireAdmin_NeedsMemberWithAdminRole(t *testing.T) {
	ks, err := jwtx.NewDevRSA()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer("https://auth.test", ks)

	run := func(tok string) int {
		h := Chain(okHandler(), RequireAuth(issuer), RequireAdmin())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	admin, _, err := issuer.Mint(jwtx.MintSpec{Subject: "a", Type: jwtx.TypeOrgMember, Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, run(admin))

	member, _, err := issuer.Mint(jwtx.MintSpec{Subject: "m", Type: jwtx.TypeOrgMember, Role: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, run(member))

	user, _, err := issuer.Mint(jwtx.MintSpec{Subject: "u", Type: jwtx.TypeEndUser})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, run(user))
}

func TestWithRateLimit_DeniesAfterMax(t *testing.T) {
	h := Chain(okHandler(), WithRateLimit(rate.NewMemoryLimiter(2, time.Minute), IPOnlyRateKey))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestWithRateLimit_NilLimiterPassesThrough(t *testing.T) {
	h := Chain(okHandler(), WithRateLimit(nil, IPOnlyRateKey))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
