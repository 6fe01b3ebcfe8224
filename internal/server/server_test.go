package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/internal/logtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreCurrent(),
		// fasthttp refreshes its cached Date header from a process-wide goroutine.
		goleak.IgnoreAnyFunction("github.com/valyala/fasthttp.updateServerDate.func1"),
		goleak.IgnoreAnyFunction("github.com/valyala/fasthttp.updateServerDate.func1.1"),
	)
}

type memRegistry map[string]*promptsdk.PromptVersion

func (m memRegistry) GetPrompt(_ context.Context, name, tag string) (*promptsdk.PromptVersion, error) {
	if err := promptsdk.ValidateName(name, tag); err != nil {
		return nil, err
	}
	if name == "broken" {
		return nil, fmt.Errorf("backend down")
	}
	p, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", promptsdk.ErrPromptNotFound, name)
	}
	out := promptsdk.CloneVersion(p)
	out.Tag = tag
	return out, nil
}

func greeting() *promptsdk.PromptVersion {
	return &promptsdk.PromptVersion{
		ID:             "pv-greet",
		Name:           "greet",
		ModelProvider:  promptsdk.ProviderOpenAI,
		ModelName:      "gpt-4o",
		TemplateFormat: promptsdk.TemplateFormatMustache,
		Template: &promptsdk.ChatTemplate{Messages: []promptsdk.PromptMessage{
			{Role: promptsdk.RoleSystem, Content: []promptsdk.ContentPart{promptsdk.TextPart{Text: "You are {{ role }}"}}},
			{Role: promptsdk.RoleUser, Content: []promptsdk.ContentPart{promptsdk.TextPart{Text: "Hi {{ name }}"}}},
		}},
	}
}

func newTestServer(t *testing.T) (*Server, *logtest.Recorder) {
	t.Helper()
	logger, rec := logtest.New()
	completion := &promptsdk.PromptVersion{
		ID: "pv-str", ModelName: "gpt-4o",
		Template: &promptsdk.StringTemplate{Template: "Complete {text}"},
	}
	reg := memRegistry{"greet": greeting(), "completion": completion}
	return New(WithRegistry(reg), WithLogger(logger)), rec
}

func do(t *testing.T, s *Server, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(body) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	return resp.StatusCode, out
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["providers"], 5)
}

func TestConvertRecord_OpenAI(t *testing.T) {
	t.Parallel()
	s, rec := newTestServer(t)
	status, body := do(t, s, postJSON("/v1/convert/openai", `{
		"prompt": {
			"id": "pv-1",
			"model_name": "gpt-4",
			"invocation_parameters": {"model": "x", "temperature": 0.5},
			"template": {"type": "chat", "messages": [{"role": "system", "content": "You are {{ role }}"}]}
		},
		"variables": {"role": "helper"}
	}`))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "gpt-4", body["model"])
	assert.InDelta(t, 0.5, body["temperature"], 1e-9)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "You are helper", msgs[0].(map[string]any)["content"])

	reqLogs := rec.AtLevel(slog.LevelInfo)
	require.NotEmpty(t, reqLogs)
	assert.Equal(t, "/v1/convert/openai", reqLogs[len(reqLogs)-1].Attrs["path"])
}

func TestConvertRecord_BadRequests(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	tests := []struct {
		name, path, body string
	}{
		{"unknown provider", "/v1/convert/mistral", `{"prompt": {"model_name": "m"}}`},
		{"malformed json", "/v1/convert/openai", `{"prompt":`},
		{"missing prompt", "/v1/convert/openai", `{"variables": {"a": 1}}`},
		{"invalid record", "/v1/convert/openai", `{"prompt": {"template": {"messages": []}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, body := do(t, s, postJSON(tt.path, tt.body))
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestConvertRecord_Unusable(t *testing.T) {
	t.Parallel()
	s, rec := newTestServer(t)
	status, body := do(t, s, postJSON("/v1/convert/anthropic", `{
		"prompt": {
			"model_name": "claude",
			"template": {"messages": [{"role": "user", "content": "hi"}]},
			"tools": {
				"tools": [{"type": "function", "function": {"name": "a"}}],
				"tool_choice": {"type": "specific_function", "function_name": "missing"}
			}
		}
	}`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, MsgUnusable, body["error"])
	require.Len(t, rec.AtLevel(slog.LevelWarn), 1)
}

func TestConvertRegistryPrompt(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/prompts/greet/ollama?tag=prod&role=guide&name=Ada", nil))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "gpt-4o", body["model"])
	msgs := body["messages"].([]any)
	assert.Equal(t, "You are guide", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "Hi Ada", msgs[1].(map[string]any)["content"])
}

func TestConvertRegistryPrompt_PreviewWithoutVariables(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/prompts/greet/gemini?tag=prod", nil))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Contains(t, fmt.Sprint(body["contents"]), "Hi {{ name }}")
}

func TestConvertRegistryPrompt_Errors(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	tests := []struct {
		path   string
		status int
	}{
		{"/v1/prompts/missing/openai", http.StatusNotFound},
		{"/v1/prompts/greet/mistral", http.StatusBadRequest},
		{"/v1/prompts/greet/openai?tag=..", http.StatusBadRequest},
		{"/v1/prompts/broken/openai", http.StatusBadGateway},
		{"/v1/prompts/completion/openai", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			status, body := do(t, s, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDescribePrompt(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/prompts/greet?tag=v2", nil))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "pv-greet", body["id"])
	assert.Equal(t, "v2", body["tag"])
	assert.Equal(t, true, body["chat"])
	assert.Equal(t, []any{"role", "name"}, body["variables"])

	status, body = do(t, s, httptest.NewRequest(http.MethodGet, "/v1/prompts/completion", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["chat"])
	assert.Equal(t, []any{}, body["variables"])
}

func TestNoRegistry(t *testing.T) {
	t.Parallel()
	s := New(WithLogger(slog.New(slog.DiscardHandler)))
	status, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/prompts/greet/openai", nil))
	assert.Equal(t, http.StatusNotImplemented, status)
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()
	s := New(WithBodyLimit(64), WithLogger(slog.New(slog.DiscardHandler)))
	status, _ := do(t, s, postJSON("/v1/convert/openai", `{"prompt": {"model_name": "`+strings.Repeat("m", 128)+`"}}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}
