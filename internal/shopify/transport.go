package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const accessTokenHeader = "X-Shopify-Access-Token"

// maxResponseBytes bounds a single GraphQL response body.
const maxResponseBytes = 16 << 20

// Request is a GraphQL document plus its variables.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type throttleStatus struct {
	MaximumAvailable   float64 `json:"maximumAvailable"`
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
}

type queryCost struct {
	RequestedQueryCost float64         `json:"requestedQueryCost"`
	ActualQueryCost    *float64        `json:"actualQueryCost"`
	ThrottleStatus     *throttleStatus `json:"throttleStatus"`
}

type gqlExtensions struct {
	Cost *queryCost `json:"cost,omitempty"`
}

// gqlBody is the decoded GraphQL response envelope.
type gqlBody struct {
	Data       json.RawMessage `json:"data"`
	Errors     []gqlError      `json:"errors"`
	Extensions *gqlExtensions  `json:"extensions"`
}

// response is what one transport call observed. Body is nil when the status
// was not 2xx and the payload could not be decoded.
type response struct {
	StatusCode int
	Header     http.Header
	Body       *gqlBody
	Raw        []byte
}

// transport performs exactly one HTTP call per invocation.
type transport struct {
	endpoint string
	token    string
	http     *http.Client
}

func endpointFor(domain, version string) string {
	domain = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://"), "/")
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, version)
}

// do returns a transport-level error only when no usable response exists:
// connection failures, timeouts, unreadable bodies, or a 2xx body that is
// not JSON.
func (t *transport) do(ctx context.Context, req Request) (*response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if t.token != "" {
		httpReq.Header.Set(accessTokenHeader, t.token)
	}

	resp, err := t.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	out := &response{StatusCode: resp.StatusCode, Header: resp.Header, Raw: raw}
	var body gqlBody
	if err := json.Unmarshal(raw, &body); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("malformed response body: %w", err)
		}
		return out, nil
	}
	out.Body = &body
	return out, nil
}
