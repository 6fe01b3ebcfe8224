package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/internal/cast"
)

// Converter turns a prompt version into provider request parameters of type P.
// Implementations are immutable after construction and safe for concurrent use.
type Converter[P any] interface {
	// Convert returns the parameters or a descriptive error; it never returns a partial value.
	Convert(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (*P, error)
	// ToParams is the fail-closed form of Convert: it returns nil and logs one warning on failure.
	ToParams(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *P
}

// Sentinel errors for provider mappers. All wrap promptsdk.ErrSchemaValidation.
var (
	ErrUnsupportedRole    = fmt.Errorf("adapter: unsupported message role for this provider: %w", promptsdk.ErrSchemaValidation)
	ErrUnsupportedContent = fmt.Errorf("adapter: unsupported content part for this provider: %w", promptsdk.ErrSchemaValidation)
	ErrMalformedArgs      = fmt.Errorf("adapter: tool call args or tool parameters JSON is malformed: %w", promptsdk.ErrSchemaValidation)
	ErrMissingSchema      = fmt.Errorf("adapter: response format has no schema: %w", promptsdk.ErrSchemaValidation)
)

// errSkipMessage is returned by message mappers that consumed the message themselves.
var errSkipMessage = errors.New("adapter: message consumed by mapper")

// SkipMessage returns the error a message mapper uses to drop a message from the mapped list
// after handling it elsewhere (e.g. lifting it into a provider's system slot).
func SkipMessage() error { return errSkipMessage }

// ModelParams holds well-known invocation parameter keys in typed form.
// Use ExtractModelConfig to populate it from map[string]any.
type ModelParams struct {
	Temperature      *float64
	MaxTokens        *int64
	TopP             *float64
	TopK             *int64
	Seed             *int64
	PresencePenalty  *float64
	FrequencyPenalty *float64
	Stop             []string
}

// TextFromParts extracts concatenated text from []ContentPart, ignoring non-text parts.
func TextFromParts(parts []promptsdk.ContentPart) string {
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p.(promptsdk.TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ExtractModelConfig reads well-known keys from invocation parameters.
// Keys: temperature, max_tokens (or max_completion_tokens), top_p, top_k, seed,
// presence_penalty, frequency_penalty, stop (string or list). Values of the wrong type are ignored.
func ExtractModelConfig(cfg map[string]any) ModelParams {
	var out ModelParams
	if cfg == nil {
		return out
	}
	out.Temperature = floatKey(cfg, "temperature")
	out.MaxTokens = intKey(cfg, "max_tokens")
	if out.MaxTokens == nil {
		out.MaxTokens = intKey(cfg, "max_completion_tokens")
	}
	out.TopP = floatKey(cfg, "top_p")
	out.TopK = intKey(cfg, "top_k")
	out.Seed = intKey(cfg, "seed")
	out.PresencePenalty = floatKey(cfg, "presence_penalty")
	out.FrequencyPenalty = floatKey(cfg, "frequency_penalty")
	if v, ok := cfg["stop"]; ok {
		if ss, ok := cast.ToStringSlice(v); ok {
			out.Stop = ss
		}
	}
	if out.Stop == nil {
		if v, ok := cfg["stop_sequences"]; ok {
			if ss, ok := cast.ToStringSlice(v); ok {
				out.Stop = ss
			}
		}
	}
	return out
}

func floatKey(cfg map[string]any, key string) *float64 {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	f, ok := cast.ToFloat64(v)
	if !ok {
		return nil
	}
	return &f
}

func intKey(cfg map[string]any, key string) *int64 {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	i, ok := cast.ToInt64(v)
	if !ok {
		return nil
	}
	return &i
}

// FunctionParameters returns the JSON Schema for a function tool's parameters.
// Non-function kinds yield promptsdk.ErrToolNotConvertible. A tool without parameters gets an
// empty object schema. The returned map is a copy.
func FunctionParameters(t promptsdk.ToolDefinition) (map[string]any, error) {
	if !t.IsFunction() {
		return nil, fmt.Errorf("%w: tool %q has kind %q", promptsdk.ErrToolNotConvertible, t.Name, t.Kind)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("%w: tool name is empty", promptsdk.ErrSchemaValidation)
	}
	if len(t.Parameters) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	if _, err := json.Marshal(t.Parameters); err != nil {
		return nil, fmt.Errorf("%w: tool %q parameters: %w", ErrMalformedArgs, t.Name, err)
	}
	return maps.Clone(t.Parameters), nil
}

// ToolCallArguments decodes the JSON object arguments of a tool call. Empty arguments decode to an empty map.
func ToolCallArguments(p promptsdk.ToolCallPart) (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(p.Arguments) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(p.Arguments), &out); err != nil {
		return nil, fmt.Errorf("%w: tool call %q: %w", ErrMalformedArgs, p.Name, err)
	}
	return out, nil
}

// ToolResultText renders a tool result: strings verbatim, nil as empty, anything else as JSON.
func ToolResultText(p promptsdk.ToolResultPart) (string, error) {
	switch r := p.Result.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	}
	b, err := json.Marshal(p.Result)
	if err != nil {
		return "", fmt.Errorf("%w: tool result for %q: %w", ErrMalformedArgs, p.ToolCallID, err)
	}
	return string(b), nil
}
