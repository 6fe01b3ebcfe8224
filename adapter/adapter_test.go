package adapter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/promptsdk"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTextFromParts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		parts []promptsdk.ContentPart
		want  string
	}{
		{"empty slice", []promptsdk.ContentPart{}, ""},
		{"nil slice", nil, ""},
		{"single text", []promptsdk.ContentPart{promptsdk.TextPart{Text: "hello"}}, "hello"},
		{"multiple text", []promptsdk.ContentPart{
			promptsdk.TextPart{Text: "a"},
			promptsdk.TextPart{Text: "b"},
			promptsdk.TextPart{Text: "c"},
		}, "abc"},
		{"mixed parts", []promptsdk.ContentPart{
			promptsdk.TextPart{Text: "x"},
			promptsdk.ImagePart{URL: "https://x"},
			promptsdk.TextPart{Text: "y"},
			promptsdk.ToolCallPart{ToolCallID: "1", Name: "f", Arguments: "{}"},
		}, "xy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TextFromParts(tt.parts))
		})
	}
}

func TestExtractModelConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		cfg   map[string]any
		check func(t *testing.T, mp ModelParams)
	}{
		{"nil map", nil, func(t *testing.T, mp ModelParams) {
			assert.Nil(t, mp.Temperature)
			assert.Nil(t, mp.MaxTokens)
			assert.Nil(t, mp.Stop)
		}},
		{"all keys", map[string]any{
			"temperature":       0.7,
			"max_tokens":        256,
			"top_p":             0.9,
			"top_k":             40,
			"seed":              7,
			"presence_penalty":  0.1,
			"frequency_penalty": 0.2,
			"stop":              []any{"END", "STOP"},
		}, func(t *testing.T, mp ModelParams) {
			require.NotNil(t, mp.Temperature)
			assert.InDelta(t, 0.7, *mp.Temperature, 1e-9)
			require.NotNil(t, mp.MaxTokens)
			assert.Equal(t, int64(256), *mp.MaxTokens)
			require.NotNil(t, mp.TopP)
			assert.InDelta(t, 0.9, *mp.TopP, 1e-9)
			require.NotNil(t, mp.TopK)
			assert.Equal(t, int64(40), *mp.TopK)
			require.NotNil(t, mp.Seed)
			assert.Equal(t, int64(7), *mp.Seed)
			require.NotNil(t, mp.PresencePenalty)
			require.NotNil(t, mp.FrequencyPenalty)
			assert.Equal(t, []string{"END", "STOP"}, mp.Stop)
		}},
		{"aliases", map[string]any{"max_completion_tokens": 64, "stop_sequences": "END"}, func(t *testing.T, mp ModelParams) {
			require.NotNil(t, mp.MaxTokens)
			assert.Equal(t, int64(64), *mp.MaxTokens)
			assert.Equal(t, []string{"END"}, mp.Stop)
		}},
		{"wrong types ignored", map[string]any{"temperature": "hot", "max_tokens": "many", "stop": 5}, func(t *testing.T, mp ModelParams) {
			assert.Nil(t, mp.Temperature)
			assert.Nil(t, mp.MaxTokens)
			assert.Nil(t, mp.Stop)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, ExtractModelConfig(tt.cfg))
		})
	}
}

func TestFunctionParameters(t *testing.T) {
	t.Parallel()

	got, err := FunctionParameters(promptsdk.ToolDefinition{Name: "f"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, got)

	schema := map[string]any{"type": "object", "required": []any{"q"}}
	got, err = FunctionParameters(promptsdk.ToolDefinition{Name: "f", Parameters: schema})
	require.NoError(t, err)
	assert.Equal(t, schema, got)
	got["type"] = "array"
	assert.Equal(t, "object", schema["type"], "returned map must be a copy")

	_, err = FunctionParameters(promptsdk.ToolDefinition{Name: "search", Kind: "web_search"})
	require.ErrorIs(t, err, promptsdk.ErrToolNotConvertible)

	_, err = FunctionParameters(promptsdk.ToolDefinition{})
	require.ErrorIs(t, err, promptsdk.ErrSchemaValidation)

	_, err = FunctionParameters(promptsdk.ToolDefinition{Name: "f", Parameters: map[string]any{"x": math.Inf(1)}})
	require.ErrorIs(t, err, ErrMalformedArgs)
	require.ErrorIs(t, err, promptsdk.ErrSchemaValidation)
}

func TestToolCallArguments(t *testing.T) {
	t.Parallel()
	args, err := ToolCallArguments(promptsdk.ToolCallPart{Name: "f", Arguments: `{"city":"Paris"}`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Paris"}, args)

	args, err = ToolCallArguments(promptsdk.ToolCallPart{Name: "f"})
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ToolCallArguments(promptsdk.ToolCallPart{Name: "f", Arguments: `{bad`})
	require.ErrorIs(t, err, ErrMalformedArgs)

	_, err = ToolCallArguments(promptsdk.ToolCallPart{Name: "f", Arguments: `[1,2]`})
	require.ErrorIs(t, err, ErrMalformedArgs)
}

func TestToolResultText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		result  any
		want    string
		wantErr bool
	}{
		{"string verbatim", "22C", "22C", false},
		{"nil", nil, "", false},
		{"map as json", map[string]any{"temp": 22}, `{"temp":22}`, false},
		{"unserializable", make(chan int), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ToolResultText(promptsdk.ToolResultPart{ToolCallID: "c1", Result: tt.result})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedArgs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSentinels_WrapSchemaValidation(t *testing.T) {
	t.Parallel()
	for _, err := range []error{ErrUnsupportedRole, ErrUnsupportedContent, ErrMalformedArgs, ErrMissingSchema} {
		assert.ErrorIs(t, err, promptsdk.ErrSchemaValidation, err.Error())
	}
}
