package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shoptools/pkg/config"
)

type signer struct {
	priv jwk.Key
	set  jwk.Set
}

func newSigner(t *testing.T) signer {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "k1"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))
	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return signer{priv: priv, set: set}
}

func (s signer) token(t *testing.T, scope string) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer("https://issuer.test").
		Audience([]string{"shoptools"}).
		Subject("agent-1").
		Claim("scope", scope).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, s.priv))
	require.NoError(t, err)
	return string(signed)
}

func authCfg(env string) config.Config {
	return config.Config{Env: env, Issuer: "https://issuer.test/", Audience: "shoptools", JWKSURL: "https://issuer.test/jwks"}
}

func echoScopes() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Actor", ActorSub(r.Context()))
		for _, s := range ScopesFrom(r.Context()) {
			w.Header().Add("X-Scope", s)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	s := newSigner(t)
	h := JWTAuth(authCfg("prod"), WithKeySet(s.set))(echoScopes())

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	req.Header.Set("Authorization", "Bearer "+s.token(t, "commerce:read commerce:write"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "agent-1", rec.Header().Get("X-Actor"))
	assert.Equal(t, []string{"commerce:read", "commerce:write"}, rec.Header().Values("X-Scope"))
}

func TestJWTAuthRejects(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)
	h := JWTAuth(authCfg("prod"), WithKeySet(s.set))(echoScopes())

	cases := map[string]string{
		"missing":     "",
		"not bearer":  "Basic Zm9vOmJhcg==",
		"garbage":     "Bearer not.a.jwt",
		"foreign key": "Bearer " + other.token(t, "commerce:read"),
	}
	for name, authz := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
			if authz != "" {
				req.Header.Set("Authorization", authz)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestJWTAuthDevBypassAndPublicPaths(t *testing.T) {
	h := JWTAuth(authCfg("dev"), WithKeySet(jwk.NewSet()))(echoScopes())
	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{AnyScope}, rec.Header().Values("X-Scope"))

	h = JWTAuth(authCfg("prod"))(echoScopes())
	for _, p := range []string{"/healthz", "/metrics", "/.well-known/openapi.json"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, p)
	}
}

func TestRequireAnyScope(t *testing.T) {
	h := RequireAnyScope("commerce:write")(echoScopes())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithScopes(req.Context(), []string{"commerce:read"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(WithScopes(req.Context(), []string{AnyScope}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestIDAndAccessLog(t *testing.T) {
	var seen string
	h := RequestID()(AccessLog(zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusAccepted)
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

func TestRecoverWritesProblem(t *testing.T) {
	h := Recover(zap.NewNop().Sugar())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
