package tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoptools/internal/shopify"
	"shoptools/pkg/middleware"
)

func serve(t *testing.T, s Store, scopes ...string) *httptest.Server {
	t.Helper()
	reg := newRegistry(t, s)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithScopes(req.Context(), scopes)))
		})
	})
	reg.Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, tool, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/tools/"+tool, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHTTPCallReturnsTextContent(t *testing.T) {
	s := &fakeStore{shop: func() (shopify.Shop, error) { return shopify.Shop{Name: "Acme", CurrencyCode: "USD"}, nil }}
	srv := serve(t, s, ScopeRead)

	resp, out := post(t, srv, "get-shop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["isError"])
	content := out["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", content["type"])
	assert.Contains(t, content["text"], "Shop: Acme")
	assert.Equal(t, "Acme", out["data"].(map[string]any)["name"])
}

func TestHTTPList(t *testing.T) {
	srv := serve(t, &fakeStore{}, ScopeRead)
	resp, err := http.Get(srv.URL + "/v1/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out struct {
		Tools []Tool `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Tools, len(Builtin()))
}

func TestHTTPScopeEnforced(t *testing.T) {
	srv := serve(t, &fakeStore{}, ScopeRead)
	resp, out := post(t, srv, "cancel-order", `{"orderId":"1"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, []any{ScopeWrite}, out["required_scopes"])

	resp, _ = post(t, srv, "nope", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, resp *http.Response, out map[string]any)
	}{
		{
			name:   "user",
			err:    &shopify.Error{Kind: shopify.KindUser, Fields: []shopify.FieldError{{Field: []string{"orderId"}, Message: "already cancelled", Code: "ALREADY_CANCELLED"}}},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, _ *http.Response, out map[string]any) {
				assert.Equal(t, "user", out["kind"])
				assert.Len(t, out["userErrors"], 1)
			},
		},
		{
			name:   "throttled",
			err:    &shopify.Error{Kind: shopify.KindThrottled, RetryAfter: 1500 * time.Millisecond},
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, resp *http.Response, _ map[string]any) {
				assert.Equal(t, "2", resp.Header.Get("Retry-After"))
			},
		},
		{name: "not found", err: &shopify.Error{Kind: shopify.KindNotFound}, status: http.StatusNotFound},
		{name: "auth", err: &shopify.Error{Kind: shopify.KindAuth}, status: http.StatusBadGateway},
		{name: "protocol", err: &shopify.Error{Kind: shopify.KindProtocol}, status: http.StatusBadGateway},
		{name: "network", err: &shopify.Error{Kind: shopify.KindNetwork}, status: http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeStore{order: func(string) (shopify.Order, error) { return shopify.Order{}, tc.err }}
			srv := serve(t, s, middleware.AnyScope)
			resp, out := post(t, srv, "get-order", `{"orderId":"gid://shopify/Order/1"}`)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
			if tc.check != nil {
				tc.check(t, resp, out)
			}
		})
	}
}

func TestHTTPInvalidArguments(t *testing.T) {
	srv := serve(t, &fakeStore{}, ScopeRead)
	resp, out := post(t, srv, "get-orders", `{"status":"weird"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["fields"], "status")
}

func TestOpenAPIDocument(t *testing.T) {
	reg := newRegistry(t, &fakeStore{})
	doc := reg.OpenAPI().Build("shoptools", "test", "")
	paths := doc["paths"].(map[string]any)
	assert.Len(t, paths, len(Builtin())+1)

	op := paths["/v1/tools/get-order"].(map[string]any)["post"].(map[string]any)
	schema := op["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)
	assert.Equal(t, []string{"orderId"}, schema["required"])
	assert.Equal(t, []string{ScopeRead}, op["x-required-scopes"])
}
