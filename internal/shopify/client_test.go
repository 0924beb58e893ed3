package shopify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAddressing(t *testing.T) {
	_, err := New(Config{StoreDomain: "x.myshopify.com"})
	require.Error(t, err)
	_, err = New(Config{AccessToken: "tok"})
	require.Error(t, err)

	c, err := New(Config{AccessToken: "tok", StoreDomain: "https://x.myshopify.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.myshopify.com/admin/api/2024-04/graphql.json", c.Endpoint())

	c, err = New(Config{AccessToken: "tok", StoreDomain: "x.myshopify.com", APIVersion: "2025-01"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.myshopify.com/admin/api/2025-01/graphql.json", c.Endpoint())
}

func TestTransportSendsTokenAndJSON(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(`{"data":{"shop":{"id":"gid://shopify/Shop/1","name":"Demo"}}}`))
	}))
	defer srv.Close()

	c, err := New(Config{AccessToken: "shpat_abc", StoreDomain: "demo.myshopify.com"}, WithEndpoint(srv.URL))
	require.NoError(t, err)
	shop, err := c.Shop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Demo", shop.Name)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "shpat_abc", got.Header.Get("X-Shopify-Access-Token"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
}

func TestAuthFailureIsNotRetried(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Shop", func(map[string]any) reply {
		return reply{Status: http.StatusUnauthorized, Body: `{"errors":"[API] Invalid API key or access token"}`}
	})
	_, err := f.client().Shop(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuth))
	assert.Equal(t, 1, f.count("Shop"))
}

func TestServerErrorIsNetwork(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Shop", func(map[string]any) reply { return reply{Status: http.StatusBadGateway, Body: "bad gateway"} })
	_, err := f.client().Shop(context.Background())
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, 1, f.count("Shop"))
}

func TestUnreachableHostIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c, err := New(Config{AccessToken: "t", StoreDomain: "d"}, WithEndpoint(url))
	require.NoError(t, err)
	_, err = c.Shop(context.Background())
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestTimeoutIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	c, err := New(Config{AccessToken: "t", StoreDomain: "d", Timeout: 20 * time.Millisecond}, WithEndpoint(srv.URL))
	require.NoError(t, err)
	_, err = c.Shop(context.Background())
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestHTTPClientReplacesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	c, err := New(Config{AccessToken: "t", StoreDomain: "d", Timeout: time.Minute},
		WithEndpoint(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	require.NoError(t, err)
	start := time.Now()
	_, err = c.Shop(context.Background())
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestThrottledThenSuccess(t *testing.T) {
	f := newFakeAdmin(t)
	n := 0
	f.on("Shop", func(map[string]any) reply {
		n++
		if n < 3 {
			return reply{Status: http.StatusTooManyRequests, Header: map[string]string{"Retry-After": "2"}, Body: `{}`}
		}
		return data(map[string]any{"shop": map[string]any{"id": "gid://shopify/Shop/1", "name": "Demo"}})
	})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	shop, err := f.client(WithMetrics(m)).Shop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Demo", shop.Name)
	assert.Equal(t, 3, f.count("Shop"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.retries.WithLabelValues("Shop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("Shop", "success")))
}

func TestThrottledExhaustion(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Shop", func(map[string]any) reply {
		return data(nil).withErrors(map[string]any{"message": "Throttled", "extensions": map[string]any{"code": "THROTTLED"}})
	})
	_, err := f.client().Shop(context.Background())
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindThrottled, e.Kind)
	assert.Equal(t, DefaultMaxAttempts, e.Attempts)
	assert.Equal(t, DefaultMaxAttempts, f.count("Shop"))
}

func TestGraphQLErrorsAreProtocol(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Shop", func(map[string]any) reply {
		return data(nil).withErrors(map[string]any{"message": "Field 'nope' doesn't exist"}, map[string]any{"message": "second"})
	})
	_, err := f.client().Shop(context.Background())
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindProtocol, e.Kind)
	assert.Equal(t, []string{"Field 'nope' doesn't exist", "second"}, e.Detail["messages"])
	assert.Equal(t, 1, f.count("Shop"))
}

func TestMalformedSuccessBodyIsNetwork(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Shop", func(map[string]any) reply { return reply{Body: "<html>"} })
	_, err := f.client().Shop(context.Background())
	assert.Equal(t, KindNetwork, KindOf(err))
}

func (r reply) withErrors(errs ...map[string]any) reply {
	body := r.Body.(map[string]any)
	list := make([]any, 0, len(errs))
	for _, e := range errs {
		list = append(list, e)
	}
	body["errors"] = list
	return r
}
