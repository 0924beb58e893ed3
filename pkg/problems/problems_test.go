package problems

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeUsesConfiguredBase(t *testing.T) {
	t.Cleanup(func() { SetBase("") })
	assert.Equal(t, "https://example.com/problems/not-found", Type("not-found"))
	SetBase("https://api.shop.test/problems/")
	assert.Equal(t, "https://api.shop.test/problems/not-found", Type("not-found"))
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, Problem{Type: Type("throttled"), Title: "Throttled", Status: 429, Extensions: map[string]any{"attempts": 4}})

	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Throttled", got["title"])
	assert.Equal(t, float64(4), got["attempts"])
	_, hasDetail := got["detail"]
	assert.False(t, hasDetail)
}
