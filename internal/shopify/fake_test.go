package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// reply is what a fake handler answers with. Status defaults to 200.
type reply struct {
	Status int
	Header map[string]string
	Body   any
}

type handlerFunc func(vars map[string]any) reply

// fakeAdmin emulates the remote GraphQL endpoint, routing by operation name.
type fakeAdmin struct {
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    []call
	srv      *httptest.Server
}

type call struct {
	Op        string
	Variables map[string]any
	Token     string
}

var opName = regexp.MustCompile(`(?:query|mutation)\s+(\w+)`)

func newFakeAdmin(t *testing.T) *fakeAdmin {
	t.Helper()
	f := &fakeAdmin{t: t, handlers: map[string]handlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAdmin) on(op string, h handlerFunc) { f.handlers[op] = h }

func (f *fakeAdmin) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m := opName.FindStringSubmatch(req.Query)
	if m == nil {
		http.Error(w, "unnamed operation", http.StatusBadRequest)
		return
	}
	op := m[1]
	f.mu.Lock()
	f.calls = append(f.calls, call{Op: op, Variables: req.Variables, Token: r.Header.Get(accessTokenHeader)})
	h := f.handlers[op]
	f.mu.Unlock()
	if h == nil {
		f.t.Errorf("unexpected operation %s", op)
		http.Error(w, "no handler", http.StatusNotImplemented)
		return
	}
	rep := h(req.Variables)
	for k, v := range rep.Header {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	status := rep.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	switch b := rep.Body.(type) {
	case string:
		_, _ = w.Write([]byte(b))
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (f *fakeAdmin) opsCalled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Op)
	}
	return out
}

func (f *fakeAdmin) count(op string) int {
	n := 0
	for _, o := range f.opsCalled() {
		if o == op {
			n++
		}
	}
	return n
}

// client returns a Client pointed at the fake with instant retries.
func (f *fakeAdmin) client(opts ...Option) *Client {
	f.t.Helper()
	policy := DefaultRetryPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	base := []Option{WithEndpoint(f.srv.URL), WithRetryPolicy(policy)}
	c, err := New(Config{AccessToken: "shpat_test", StoreDomain: "example.myshopify.com"}, append(base, opts...)...)
	require.NoError(f.t, err)
	return c
}

func data(v any) reply { return reply{Body: map[string]any{"data": v}} }

func userErrors(payload string, errs ...map[string]any) reply {
	list := make([]any, 0, len(errs))
	for _, e := range errs {
		list = append(list, e)
	}
	return data(map[string]any{payload: map[string]any{"userErrors": list}})
}

func connectionOf(nodes []any, hasNext bool, end string) map[string]any {
	info := map[string]any{"hasNextPage": hasNext, "endCursor": nil}
	if end != "" {
		info["endCursor"] = end
	}
	return map[string]any{"nodes": nodes, "pageInfo": info}
}
