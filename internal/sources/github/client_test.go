package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubmap/pkg/errors"
)

func TestListRepositories(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/imageomics/repos", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"full_name":"Imageomics/pybioclip","name":"pybioclip","stargazers_count":10},
			"not an object",
			{"full_name":"Imageomics/Fish-Vista","name":"Fish-Vista","fork":true}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	repos, err := client.ListRepositories(context.Background(), "imageomics", 100)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "Imageomics/pybioclip", repos[0].FullName)
	assert.Equal(t, 10, repos[0].Stars.Int())
	assert.True(t, repos[1].Fork)

	assert.Contains(t, gotQuery, "type=public")
	assert.Contains(t, gotQuery, "per_page=100")
}

func TestListRepositoriesPaginates(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page := r.URL.Query().Get("page")
		if page == "1" {
			entries := make([]string, 0, 100)
			for i := 0; i < 100; i++ {
				entries = append(entries, fmt.Sprintf(`{"full_name":"org/r%d","name":"r%d"}`, i, i))
			}
			_, _ = w.Write([]byte("[" + strings.Join(entries, ",") + "]"))
			return
		}
		_, _ = w.Write([]byte(`[{"full_name":"org/last","name":"last"}]`))
	}))
	defer server.Close()

	repos, err := NewClient(server.URL).ListRepositories(context.Background(), "org", 150)
	require.NoError(t, err)
	assert.Len(t, repos, 101)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListRepositoriesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).ListRepositories(context.Background(), "org", 10)
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))

	_, err = NewClient(server.URL).ListRepositories(context.Background(), "", 10)
	assert.True(t, errors.IsValidationError(err))
}

func TestRepositoryStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/Imageomics/catalog", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"full_name":"Imageomics/catalog","html_url":"https://github.com/Imageomics/catalog","stargazers_count":12,"forks_count":3}`))
	})
	mux.HandleFunc("/repos/Imageomics/catalog/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v1.2.0"}`))
	})
	mux.HandleFunc("/repos/Imageomics/norelease", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"full_name":"Imageomics/norelease","stargazers_count":1}`))
	})
	mux.HandleFunc("/repos/Imageomics/norelease/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL)

	stats, err := client.RepositoryStats(context.Background(), "Imageomics", "catalog")
	require.NoError(t, err)
	assert.Equal(t, "Imageomics/catalog", stats.Repository)
	assert.Equal(t, 12, stats.Stars)
	assert.Equal(t, 3, stats.Forks)
	assert.Equal(t, "v1.2.0", stats.LatestRelease)

	stats, err = client.RepositoryStats(context.Background(), "Imageomics", "norelease")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stars)
	assert.Empty(t, stats.LatestRelease)

	_, err = client.RepositoryStats(context.Background(), "Imageomics", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
