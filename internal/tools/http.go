package tools

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shoptools/internal/policy"
	"shoptools/internal/shopify"
	"shoptools/pkg/middleware"
	"shoptools/pkg/openapi"
	"shoptools/pkg/problems"
)

const maxArgsBytes = 1 << 20

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResponse struct {
	Content []content `json:"content"`
	IsError bool      `json:"isError"`
	Data    any       `json:"data,omitempty"`
}

// Mount adds the catalog and call routes to r.
func (reg *Registry) Mount(r chi.Router) {
	r.Get("/v1/tools", reg.handleList)
	r.Post("/v1/tools/{name}", reg.handleCall)
}

func (reg *Registry) handleList(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"tools": reg.Tools()})
}

func (reg *Registry) handleCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := reg.Lookup(name)
	if !ok {
		problems.Write(w, problems.Problem{
			Type:   problems.Type("unknown-tool"),
			Title:  "Unknown tool",
			Status: http.StatusNotFound,
			Detail: name,
		})
		return
	}
	if !middleware.HasAnyScope(r.Context(), t.Scopes) {
		problems.Write(w, problems.Problem{
			Type:       problems.Type("insufficient-scope"),
			Title:      "Insufficient scope",
			Status:     http.StatusForbidden,
			Extensions: map[string]any{"required_scopes": t.Scopes},
		})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxArgsBytes+1))
	if err != nil || len(body) > maxArgsBytes {
		problems.Write(w, problems.Problem{
			Type:   problems.Type("invalid-arguments"),
			Title:  "Arguments could not be read",
			Status: http.StatusBadRequest,
		})
		return
	}
	res, err := reg.Call(r.Context(), name, body)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(callResponse{
		Content: []content{{Type: "text", Text: res.Text}},
		Data:    res.Data,
	})
}

// writeError maps a call failure to a problem document.
func writeError(w http.ResponseWriter, err error) {
	var (
		inv     *InvalidArgsError
		blocked *BlockedError
		limited *RateLimitedError
	)
	switch {
	case errors.Is(err, ErrUnknownTool):
		problems.Write(w, problems.Problem{Type: problems.Type("unknown-tool"), Title: "Unknown tool", Status: http.StatusNotFound, Detail: err.Error()})
	case errors.As(err, &inv):
		p := problems.Problem{Type: problems.Type("invalid-arguments"), Title: "Invalid arguments", Status: http.StatusBadRequest, Detail: err.Error()}
		if len(inv.Fields) > 0 {
			p.Extensions = map[string]any{"fields": inv.Fields}
		}
		problems.Write(w, p)
	case errors.As(err, &blocked):
		slug, title := "policy-blocked", "Blocked by policy"
		if blocked.Decision.Status == policy.NeedsInput {
			slug, title = "approval-required", "Approval required"
		}
		problems.Write(w, problems.Problem{
			Type:       problems.Type(slug),
			Title:      title,
			Status:     http.StatusForbidden,
			Extensions: map[string]any{"reasons": blocked.Decision.Reasons, "needs": blocked.Decision.Needs},
		})
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", retryAfter(limited.RetryAfter.Seconds()))
		problems.Write(w, problems.Problem{Type: problems.Type("rate-limited"), Title: "Too many tool calls", Status: http.StatusTooManyRequests})
	default:
		writeCommerceError(w, err)
	}
}

func writeCommerceError(w http.ResponseWriter, err error) {
	e, ok := shopify.AsError(err)
	if !ok {
		problems.Write(w, problems.Problem{Type: problems.Type("internal"), Title: "Internal error", Status: http.StatusInternalServerError})
		return
	}
	p := problems.Problem{Detail: e.Error(), Extensions: map[string]any{"kind": e.Kind.String()}}
	switch e.Kind {
	case shopify.KindUser:
		p.Type, p.Title, p.Status = problems.Type("commerce-user-error"), "Rejected by the store", http.StatusUnprocessableEntity
		if len(e.Fields) > 0 {
			p.Extensions["userErrors"] = e.Fields
		}
	case shopify.KindNotFound:
		p.Type, p.Title, p.Status = problems.Type("not-found"), "Not found", http.StatusNotFound
	case shopify.KindThrottled:
		p.Type, p.Title, p.Status = problems.Type("commerce-throttled"), "Store API throttled", http.StatusTooManyRequests
		w.Header().Set("Retry-After", retryAfter(e.RetryAfter.Seconds()))
	case shopify.KindAuth:
		p.Type, p.Title, p.Status = problems.Type("commerce-auth"), "Store credentials rejected", http.StatusBadGateway
	case shopify.KindProtocol:
		p.Type, p.Title, p.Status = problems.Type("commerce-protocol"), "Unexpected store response", http.StatusBadGateway
	default:
		p.Type, p.Title, p.Status = problems.Type("commerce-unavailable"), "Store unreachable", http.StatusGatewayTimeout
	}
	for k, v := range e.Detail {
		if _, taken := p.Extensions[k]; !taken {
			p.Extensions[k] = v
		}
	}
	problems.Write(w, p)
}

func retryAfter(seconds float64) string {
	s := int(math.Ceil(seconds))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// OpenAPI describes the catalog and every tool call route.
func (reg *Registry) OpenAPI() *openapi.Registry {
	doc := openapi.NewRegistry()
	doc.Register(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/v1/tools",
		OperationID: "list-tools",
		Summary:     "List tools with their parameters",
		Tags:        []string{"tools"},
		Responses:   map[string]any{"200": map[string]any{"description": "Tool catalog"}},
	})
	for _, t := range reg.Tools() {
		props := map[string]any{}
		var required []string
		for _, p := range t.Params {
			s := map[string]any{"type": p.Type}
			if p.Description != "" {
				s["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				s["enum"] = p.Enum
			}
			if p.Default != nil {
				s["default"] = p.Default
			}
			props[p.Name] = s
			if p.Required {
				required = append(required, p.Name)
			}
		}
		schema := map[string]any{"type": "object", "properties": props, "additionalProperties": false}
		if len(required) > 0 {
			schema["required"] = required
		}
		doc.Register(openapi.Operation{
			Method:      http.MethodPost,
			Path:        "/v1/tools/" + t.Name,
			OperationID: t.Name,
			Summary:     t.Description,
			Tags:        []string{"tools"},
			Scopes:      t.Scopes,
			RequestBody: map[string]any{
				"required": false,
				"content":  map[string]any{"application/json": map[string]any{"schema": schema}},
			},
			Responses: map[string]any{
				"200": map[string]any{"description": "Tool result"},
				"400": map[string]any{"description": "Invalid arguments"},
				"403": map[string]any{"description": "Missing scope or blocked by policy"},
				"422": map[string]any{"description": "Rejected by the store"},
				"429": map[string]any{"description": "Rate limited or store throttled"},
			},
		})
	}
	return doc
}
