package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroupsOperationsByPath(t *testing.T) {
	r := NewRegistry()
	r.Register(Operation{Method: "POST", Path: "/v1/tools/get-orders", OperationID: "get-orders", Scopes: []string{"commerce:read"}, Responses: map[string]any{"200": map[string]any{"description": "ok"}}})
	r.Register(Operation{Method: "GET", Path: "/v1/tools", Responses: map[string]any{"200": map[string]any{"description": "catalog"}}})

	doc := r.Build("shoptools", "1.0.0", "")
	paths := doc["paths"].(map[string]any)
	require.Len(t, paths, 2)

	post := paths["/v1/tools/get-orders"].(map[string]any)["post"].(map[string]any)
	assert.Equal(t, "get-orders", post["operationId"])
	assert.Equal(t, []string{"commerce:read"}, post["x-required-scopes"])
	assert.NotContains(t, paths["/v1/tools"].(map[string]any)["get"], "security")

	flows := doc["components"].(map[string]any)["securitySchemes"].(map[string]any)["oauth"].(map[string]any)["flows"].(map[string]any)
	cc := flows["clientCredentials"].(map[string]any)
	assert.Equal(t, "/oauth/token", cc["tokenUrl"])
	assert.Contains(t, cc["scopes"], "commerce:write")
}

func TestServeHandler(t *testing.T) {
	r := NewRegistry()
	r.Register(Operation{Method: "post", Path: "/v1/tools/get-shop", Responses: map[string]any{}})
	rec := httptest.NewRecorder()
	r.ServeHandler("shoptools", "1", "https://issuer.test/token")(rec, httptest.NewRequest(http.MethodGet, "/.well-known/openapi.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.1.0", doc["openapi"])
	assert.Contains(t, rec.Body.String(), "https://issuer.test/token")
}
