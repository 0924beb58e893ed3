// pkg/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"shoptools/pkg/config"
	"shoptools/pkg/problems"
)

// jwksCache caches JWKS sets per URL.
type jwksCache struct {
	mu    sync.RWMutex
	sets  map[string]cachedJWKS
	fetch func(ctx context.Context, url string) (jwk.Set, error)
}

type cachedJWKS struct {
	set     jwk.Set
	expires time.Time
}

func (c *jwksCache) get(ctx context.Context, url string, ttl time.Duration) (jwk.Set, error) {
	c.mu.RLock()
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		c.mu.RUnlock()
		return e.set, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = map[string]cachedJWKS{}
	}
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		return e.set, nil
	}
	set, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.sets[url] = cachedJWKS{set: set, expires: time.Now().Add(ttl)}
	return set, nil
}

type tokenCtxKey struct{}

// AuthOption adjusts JWTAuth; used by tests to supply keys directly.
type AuthOption func(*jwksCache)

// WithKeySet serves set instead of fetching the JWKS URL.
func WithKeySet(set jwk.Set) AuthOption {
	return func(c *jwksCache) {
		c.fetch = func(context.Context, string) (jwk.Set, error) { return set, nil }
	}
}

// JWTAuth validates bearer tokens against the configured issuer and JWKS and
// stores the token's scopes in the context. In dev, requests without an
// Authorization header pass with every scope.
func JWTAuth(cfg config.Config, opts ...AuthOption) func(http.Handler) http.Handler {
	cache := &jwksCache{fetch: func(ctx context.Context, url string) (jwk.Set, error) { return jwk.Fetch(ctx, url) }}
	for _, o := range opts {
		o(cache)
	}
	jwksTTL := 6 * time.Hour
	issuer := strings.TrimRight(cfg.Issuer, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/.well-known/") {
				next.ServeHTTP(w, r)
				return
			}
			authz := r.Header.Get("Authorization")
			if cfg.Env == "dev" && strings.TrimSpace(authz) == "" {
				next.ServeHTTP(w, r.WithContext(WithScopes(r.Context(), []string{AnyScope})))
				return
			}
			if issuer == "" || cfg.JWKSURL == "" {
				unauthorized(w, http.StatusInternalServerError, "auth-not-configured", "Authentication is not configured")
				return
			}
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				unauthorized(w, http.StatusUnauthorized, "missing-bearer", "A bearer token is required")
				return
			}
			set, err := cache.get(r.Context(), cfg.JWKSURL, jwksTTL)
			if err != nil {
				unauthorized(w, http.StatusInternalServerError, "jwks-unavailable", "Signing keys could not be fetched")
				return
			}
			raw := strings.TrimSpace(authz[len("Bearer "):])
			parseOpts := []jwt.ParseOption{jwt.WithKeySet(set), jwt.WithIssuer(issuer), jwt.WithValidate(true), jwt.WithVerify(true), jwt.WithAcceptableSkew(cfg.ClockSkew)}
			if cfg.Audience != "" {
				parseOpts = append(parseOpts, jwt.WithAudience(cfg.Audience))
			}
			jt, perr := jwt.Parse([]byte(raw), parseOpts...)
			if perr != nil {
				unauthorized(w, http.StatusUnauthorized, "invalid-token", "The bearer token is not valid")
				return
			}
			var scopes []string
			if sc, ok := jt.Get("scope"); ok {
				if s, _ := sc.(string); s != "" {
					scopes = strings.Fields(s)
				}
			}
			ctx := WithScopes(r.Context(), scopes)
			ctx = context.WithValue(ctx, tokenCtxKey{}, jt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, status int, slug, title string) {
	problems.Write(w, problems.Problem{Type: problems.Type(slug), Title: title, Status: status})
}

// ActorSub returns the token subject, or "" for unauthenticated requests.
func ActorSub(ctx context.Context) string {
	if jt := tokenFromCtx(ctx); jt != nil {
		return jt.Subject()
	}
	return ""
}

func tokenFromCtx(ctx context.Context) jwt.Token {
	if t, ok := ctx.Value(tokenCtxKey{}).(jwt.Token); ok {
		return t
	}
	return nil
}
