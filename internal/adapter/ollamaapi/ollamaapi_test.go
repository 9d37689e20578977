package ollamaapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/retry"
)

func TestBaseURL(t *testing.T) {
	assert.Equal(t, DefaultURL, BaseURL(""))
	assert.Equal(t, "http://gpu:11434", BaseURL("http://gpu:11434/"))
}

func TestPing(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	require.NoError(t, Ping(context.Background(), srv.Client(), srv.URL))
	assert.Equal(t, []string{"/api/tags"}, paths)
}

func TestPing_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 600)))
	}))
	defer srv.Close()

	err := Ping(context.Background(), srv.Client(), srv.URL)
	var se *retry.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Len(t, se.Body, 203)
	assert.True(t, retry.Retryable(err))
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Error(t, Ping(context.Background(), http.DefaultClient, url))
}
