package remoteregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skosovsky/promptsdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordYAML(id, text string) string {
	return `
id: ` + id + `
model_name: gpt-4o
template:
  type: chat
  messages:
    - role: system
      content: "` + text + `"
`
}

func TestHTTPFetcher_Fetch_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/support_agent.yaml", r.URL.Path)
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(recordYAML("pv-1", "Hello {{ user_name }}")))
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	data, err := h.Fetch(context.Background(), "support_agent", "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "pv-1")
}

func TestHTTPFetcher_Fetch_TagSpecific(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/p.prod.json" {
			_, _ = w.Write([]byte(`{"id":"pv-prod","model_name":"m","template":{"messages":[{"role":"user","content":"hi"}]}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL + "/")
	require.NoError(t, err)
	data, err := h.Fetch(context.Background(), "p", "prod")
	require.NoError(t, err)
	assert.Contains(t, string(data), "pv-prod")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/p.prod.yaml", "/p.prod.yml", "/p.prod.json"}, paths)
}

func TestHTTPFetcher_Fetch_FallbackToBase(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/p.yml" {
			_, _ = w.Write([]byte(recordYAML("pv-base", "Base")))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	data, err := h.Fetch(context.Background(), "p", "staging")
	require.NoError(t, err)
	assert.Contains(t, string(data), "pv-base")
}

func TestHTTPFetcher_Fetch_NotFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	_, err = h.Fetch(context.Background(), "missing", "prod")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = New(h).GetPrompt(context.Background(), "missing", "")
	require.ErrorIs(t, err, promptsdk.ErrPromptNotFound)
}

func TestHTTPFetcher_Fetch_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	_, err = h.Fetch(context.Background(), "p", "")
	require.ErrorIs(t, err, ErrFetchFailed)
	require.ErrorIs(t, err, ErrHTTPStatus)
}

func TestHTTPFetcher_Fetch_AuthToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(recordYAML("pv-auth", "ok")))
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL, WithAuthToken("secret"))
	require.NoError(t, err)
	_, err = h.Fetch(context.Background(), "p", "")
	require.NoError(t, err)

	anon, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	_, err = anon.Fetch(context.Background(), "p", "")
	require.ErrorIs(t, err, ErrHTTPStatus)
}

func TestHTTPFetcher_Fetch_InvalidName(t *testing.T) {
	t.Parallel()
	h, err := NewHTTPFetcher("http://127.0.0.1:1")
	require.NoError(t, err)
	_, err = h.Fetch(context.Background(), "../secret", "")
	require.ErrorIs(t, err, promptsdk.ErrInvalidName)
}

func TestNewHTTPFetcher_InvalidURL(t *testing.T) {
	t.Parallel()
	_, err := NewHTTPFetcher("")
	require.Error(t, err)
	_, err = NewHTTPFetcher("://invalid")
	require.Error(t, err)
	_, err = NewHTTPFetcher("no-scheme")
	require.Error(t, err)
}

func TestHTTPFetcher_Fetch_BodyTooLarge(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 65)))
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL, WithMaxBodySize(64))
	require.NoError(t, err)
	_, err = h.Fetch(context.Background(), "large", "")
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.Contains(t, err.Error(), "exceeds")

	_, err = New(h).GetPrompt(context.Background(), "large", "")
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestHTTPFetcher_IntegrationWithRegistry(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/integ.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(recordYAML("pv-integ", "Integrated")))
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	p, err := New(h).GetPrompt(context.Background(), "integ", "beta")
	require.NoError(t, err)
	assert.Equal(t, "pv-integ", p.ID)
	assert.Equal(t, "beta", p.Tag)
	msgs, ok := p.Messages()
	require.True(t, ok)
	assert.Equal(t, promptsdk.RoleSystem, msgs[0].Role)
}

func TestHTTPFetcher_WithHTTPClient(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(recordYAML("pv-client", "OK")))
	}))
	defer srv.Close()

	h, err := NewHTTPFetcher(srv.URL, WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	require.NoError(t, err)
	data, err := h.Fetch(context.Background(), "client_test", "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "pv-client")

	// nil keeps the default client.
	h2, err := NewHTTPFetcher(srv.URL, WithHTTPClient(nil))
	require.NoError(t, err)
	_, err = h2.Fetch(context.Background(), "client_test", "")
	require.NoError(t, err)
}

func TestHTTPFetcher_Fetch_UserAgentSet(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(recordYAML("pv-ua", "OK")))
	}))
	defer srv.Close()
	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	_, err = h.Fetch(context.Background(), "ua", "")
	require.NoError(t, err)
}

func TestHTTPFetcher_Fetch_ContextCancellation(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)
	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Fetch(ctx, "x", "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher_Fetch_DotInName(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/support.agent.yaml", r.URL.Path)
		_, _ = w.Write([]byte(recordYAML("support.agent", "Dot name")))
	}))
	defer srv.Close()
	h, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	data, err := h.Fetch(context.Background(), "support.agent", "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "support.agent")
}
