package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/pkg/logging"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type registryCalls struct {
	repos atomic.Int32
	stats atomic.Int32
}

func newRegistry(t *testing.T, calls *registryCalls) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/gh/orgs/imageomics/repos", func(w http.ResponseWriter, _ *http.Request) {
		calls.repos.Add(1)
		_, _ = w.Write([]byte(`[
			{"full_name":"imageomics/pybioclip","name":"pybioclip","topics":["vision"],"created_at":"2025-05-27T00:00:00Z","updated_at":"2025-05-30T00:00:00Z"},
			{"full_name":"imageomics/Fish-Vista","name":"Fish-Vista","fork":true,"created_at":"2024-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z"}
		]`))
	})
	mux.HandleFunc("/gh/repos/imageomics/catalog", func(w http.ResponseWriter, _ *http.Request) {
		calls.stats.Add(1)
		_, _ = w.Write([]byte(`{"full_name":"imageomics/catalog","html_url":"https://github.com/imageomics/catalog","stargazers_count":4,"forks_count":2}`))
	})
	mux.HandleFunc("/gh/repos/imageomics/catalog/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v0.3.0"}`))
	})
	mux.HandleFunc("/hf/datasets", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"imageomics/TreeOfLife-10M","tags":["vision"],"lastModified":"2025-03-01T00:00:00Z"}]`))
	})
	mux.HandleFunc("/hf/spaces", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/hf/models", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"imageomics/bioclip"}]`))
	})
	mux.HandleFunc("/hf/models/imageomics/bioclip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"imageomics/bioclip","library_name":"open_clip","tags":["clip"],"lastModified":"2025-04-01T00:00:00Z"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	handler http.Handler
	calls   *registryCalls
	client  hubmap.Client
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	logging.DisableLoggingForTest(t)

	calls := &registryCalls{}
	registry := newRegistry(t, calls)
	m := metrics.New()

	client, err := hubmap.New(
		hubmap.WithOrganization("imageomics"),
		hubmap.WithForkAllowList("fish-vista"),
		hubmap.WithGitHubURL(registry.URL+"/gh"),
		hubmap.WithHubURL(registry.URL+"/hf"),
		hubmap.WithRequestsPerSecond(0),
		hubmap.WithClock(func() time.Time { return testNow }),
		hubmap.WithMetricsCollector(m),
	)
	require.NoError(t, err)

	app := &application.Mock{
		ClientFunc: func() (hubmap.Client, error) { return client, nil },
	}

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := New(app, cfg, m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{handler: srv.Handler(), calls: calls, client: client}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	var env envelope
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

type itemsPayload struct {
	Items []struct {
		ID          string `json:"id"`
		Category    string `json:"category"`
		DisplayName string `json:"display_name"`
		New         bool   `json:"new"`
	} `json:"items"`
	Count int    `json:"count"`
	State string `json:"state"`
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestServerNewRequiresClient(t *testing.T) {
	app := &application.Mock{}
	_, err := New(app, DefaultConfig(), nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w, resp := env.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Nil(t, resp.Error)
		assert.Contains(t, string(resp.Data), `"status":"healthy"`)
	}
}

func TestReadyDoesNotFetch(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"organization":"imageomics"`)
	assert.Equal(t, int32(0), env.calls.repos.Load())
}

func TestListItems(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/items?category=code&sort=name-asc")
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data := decodeData[itemsPayload](t, resp)
	require.Equal(t, 2, data.Count)
	assert.Equal(t, "Fish-Vista", data.Items[0].DisplayName)
	assert.Equal(t, "pybioclip", data.Items[1].DisplayName)
	assert.True(t, data.Items[1].New)
	assert.Equal(t, "category=code&sort=name-asc", data.State)

	env.do(t, http.MethodGet, "/api/v1/items?category=code")
	assert.Equal(t, int32(1), env.calls.repos.Load())
}

func TestListItemsStateParameter(t *testing.T) {
	env := newTestEnv(t, nil)

	state := url.QueryEscape("category=code&search=vista")
	w, resp := env.do(t, http.MethodGet, "/api/v1/items?state="+state)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData[itemsPayload](t, resp)
	require.Equal(t, 1, data.Count)
	assert.Equal(t, "Fish-Vista", data.Items[0].DisplayName)

	// Explicit keys override the encoded state.
	w, resp = env.do(t, http.MethodGet, "/api/v1/items?state="+state+"&search=bioclip")
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData[itemsPayload](t, resp)
	require.Equal(t, 1, data.Count)
	assert.Equal(t, "pybioclip", data.Items[0].DisplayName)
}

func TestListItemsInvalidParamsRevertToDefaults(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/items?category=code&sort=sideways")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData[itemsPayload](t, resp)
	assert.Equal(t, "category=code", data.State)
}

func TestListItemsAllPartialFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/items?tag=VISION")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FETCH_FAILED", resp.Error.Code)

	data := decodeData[itemsPayload](t, resp)
	require.Equal(t, 2, data.Count)
	assert.Equal(t, "code", data.Items[0].Category)
	assert.Equal(t, "dataset", data.Items[1].Category)
}

func TestListItemsCategoryFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/items?category=space")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FETCH_FAILED", resp.Error.Code)
	assert.Equal(t, "null", string(resp.Data))
}

func TestTagsAndFacets(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/tags?category=model")
	require.Equal(t, http.StatusOK, w.Code)
	tags := decodeData[struct {
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
	}](t, resp)
	assert.Equal(t, "model", tags.Category)
	assert.Equal(t, []string{"clip"}, tags.Tags)

	w, resp = env.do(t, http.MethodGet, "/api/v1/facets?category=model")
	require.Equal(t, http.StatusOK, w.Code)
	facets := decodeData[struct {
		Facets struct {
			Libraries []string `json:"libraries"`
		} `json:"facets"`
	}](t, resp)
	assert.Equal(t, []string{"open_clip"}, facets.Facets.Libraries)

	w, resp = env.do(t, http.MethodGet, "/api/v1/tags?category=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/tags?category=space")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// "all" serves what loaded even though spaces failed.
	w, resp = env.do(t, http.MethodGet, "/api/v1/tags")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"vision"`)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, nil)

	_, resp := env.do(t, http.MethodGet, "/api/v1/categories")
	assert.Contains(t, string(resp.Data), `{"loaded":false,"name":"code","source":true}`)

	env.do(t, http.MethodGet, "/api/v1/items?category=code")

	_, resp = env.do(t, http.MethodGet, "/api/v1/categories")
	assert.Contains(t, string(resp.Data), `{"loaded":true,"name":"code","source":true}`)
	assert.Contains(t, string(resp.Data), `{"name":"all","source":false}`)
}

func TestStatsAreCached(t *testing.T) {
	env := newTestEnv(t, nil)

	for i := 0; i < 3; i++ {
		w, resp := env.do(t, http.MethodGet, "/api/v1/stats")
		require.Equal(t, http.StatusOK, w.Code)
		stats := decodeData[hubmap.RepositoryStats](t, resp)
		assert.Equal(t, 4, stats.Stars)
		assert.Equal(t, 2, stats.Forks)
		assert.Equal(t, "v0.3.0", stats.LatestRelease)
	}
	assert.Equal(t, int32(1), env.calls.stats.Load())
}

func TestStateEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/state/encode?tag=fish&category=model&sort=bogus")
	require.Equal(t, http.StatusOK, w.Code)
	encoded := decodeData[struct {
		State string `json:"state"`
	}](t, resp)
	assert.Equal(t, "category=model&tag=fish", encoded.State)

	location := url.Values{"location": {"/catalog?category=code&tag=a#tag=b"}}.Encode()
	w, resp = env.do(t, http.MethodGet, "/api/v1/state/decode?"+location)
	require.Equal(t, http.StatusOK, w.Code)
	decoded := decodeData[struct {
		Params struct {
			Category string `json:"category"`
			Tag      string `json:"tag"`
			Sort     string `json:"sort"`
		} `json:"params"`
		State string `json:"state"`
	}](t, resp)
	assert.Equal(t, "code", decoded.Params.Category)
	assert.Equal(t, "b", decoded.Params.Tag)
	assert.Equal(t, "lastModified", decoded.Params.Sort)
	assert.Equal(t, "category=code&tag=b", decoded.State)
	assert.Equal(t, int32(0), env.calls.repos.Load())
}

func TestMethodAndRouteErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodPost, "/api/v1/items")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", resp.Error.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	w, _ = env.do(t, http.MethodGet, "/favicon.ico")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	w, _ := env.do(t, http.MethodGet, "/health")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/v1/items?category=code")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `hubmap_category_loads_total{category="code",result="success"} 1`)
	assert.Contains(t, body, `hubmap_http_requests_total{route="/items",status="200"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MetricsEnabled = false })

	w, _ := env.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.RateLimit = 1 })

	w, _ := env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
}

func TestCORSEnabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.CORSEnabled = true
		c.CORSOrigins = []string{"https://imageomics.github.io"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://imageomics.github.io")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	assert.Equal(t, "https://imageomics.github.io", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	logging.DisableLoggingForTest(t)
	calls := &registryCalls{}
	registry := newRegistry(t, calls)
	client, err := hubmap.New(hubmap.WithGitHubURL(registry.URL+"/gh"), hubmap.WithHubURL(registry.URL+"/hf"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	srv, err := New(&application.Mock{ClientFunc: func() (hubmap.Client, error) { return client, nil }}, cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
