package problems

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
)

const defaultBase = "https://example.com/problems"

var base atomic.Value

// SetBase sets the base URL for problem type identifiers. An empty value
// restores the default.
func SetBase(b string) {
	b = strings.TrimRight(b, "/")
	if b == "" {
		b = defaultBase
	}
	base.Store(b)
}

// Base returns the base URL for problem type identifiers.
func Base() string {
	if b, ok := base.Load().(string); ok {
		return b
	}
	return defaultBase
}

// Type builds a full problem type URL for the given slug.
func Type(slug string) string { return Base() + "/" + slug }

// Problem is an RFC 7807 document. Extra members go in Extensions.
type Problem struct {
	Type       string
	Title      string
	Status     int
	Detail     string
	Extensions map[string]any
}

func (p Problem) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extensions)+4)
	for k, v := range p.Extensions {
		m[k] = v
	}
	m["type"] = p.Type
	m["title"] = p.Title
	m["status"] = p.Status
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	return json.Marshal(m)
}

// Write sends p as application/problem+json.
func Write(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
