package shopify

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultThrottleWait = time.Second

// classify turns one transport outcome into either the GraphQL data object
// or an *Error. The order of checks matters: the first match wins.
func classify(op string, resp *response, transportErr error) (json.RawMessage, *Error) {
	if transportErr != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Message: "request failed", Err: transportErr}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &Error{Kind: KindAuth, Op: op, Message: fmt.Sprintf("access denied (HTTP %d)", resp.StatusCode), Detail: rawDetail(resp)}
	}

	if wait, ok := throttled(resp); ok {
		return nil, &Error{Kind: KindThrottled, Op: op, Message: "rate limited by remote API", RetryAfter: wait}
	}

	if resp.StatusCode >= 500 {
		return nil, &Error{Kind: KindNetwork, Op: op, Message: fmt.Sprintf("remote unavailable (HTTP %d)", resp.StatusCode), Detail: rawDetail(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.Body == nil {
		return nil, &Error{Kind: KindProtocol, Op: op, Message: fmt.Sprintf("unexpected HTTP %d", resp.StatusCode), Detail: rawDetail(resp)}
	}

	if len(resp.Body.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Body.Errors))
		for _, e := range resp.Body.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &Error{Kind: KindProtocol, Op: op, Message: strings.Join(msgs, "; "), Detail: map[string]any{"messages": msgs}}
	}

	if fields := mutationUserErrors(resp.Body.Data); len(fields) > 0 {
		return nil, &Error{Kind: KindUser, Op: op, Message: fields[0].Message, Fields: fields}
	}

	return resp.Body.Data, nil
}

// throttled recognises HTTP 429, a THROTTLED GraphQL error, or a cost
// extension reporting less budget than the query needs.
func throttled(resp *response) (time.Duration, bool) {
	hit := resp.StatusCode == http.StatusTooManyRequests
	var cost *queryCost
	if resp.Body != nil {
		for _, e := range resp.Body.Errors {
			if code, _ := e.Extensions["code"].(string); strings.EqualFold(code, "THROTTLED") {
				hit = true
			}
		}
		if resp.Body.Extensions != nil {
			cost = resp.Body.Extensions.Cost
		}
		if cost != nil && cost.ThrottleStatus != nil && cost.ActualQueryCost == nil &&
			cost.ThrottleStatus.CurrentlyAvailable < cost.RequestedQueryCost && isNullData(resp.Body.Data) {
			hit = true
		}
	}
	if !hit {
		return 0, false
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	if cost != nil && cost.ThrottleStatus != nil && cost.ThrottleStatus.RestoreRate > 0 {
		deficit := cost.RequestedQueryCost - cost.ThrottleStatus.CurrentlyAvailable
		if deficit > 0 {
			return time.Duration(math.Ceil(deficit/cost.ThrottleStatus.RestoreRate)) * time.Second, true
		}
	}
	return defaultThrottleWait, true
}

func isNullData(data json.RawMessage) bool {
	s := strings.TrimSpace(string(data))
	return s == "" || s == "null"
}

// mutationUserErrors collects userErrors from every top-level payload object
// of data. Queries have no such field and yield nothing.
func mutationUserErrors(data json.RawMessage) []FieldError {
	if isNullData(data) {
		return nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil
	}
	var out []FieldError
	for _, payload := range top {
		var p struct {
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
				Code    string   `json:"code"`
			} `json:"userErrors"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			continue
		}
		for _, ue := range p.UserErrors {
			out = append(out, FieldError{Field: ue.Field, Message: ue.Message, Code: ue.Code})
		}
	}
	return out
}

func rawDetail(resp *response) map[string]any {
	if len(resp.Raw) == 0 {
		return nil
	}
	body := string(resp.Raw)
	if len(body) > 512 {
		body = body[:512]
	}
	return map[string]any{"status": resp.StatusCode, "body": body}
}
