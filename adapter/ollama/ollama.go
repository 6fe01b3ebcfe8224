package ollama

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ollama/ollama/api"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/adapter"
	"github.com/skosovsky/promptsdk/internal/media"
)

// ProviderName is used in diagnostics.
const ProviderName = "ollama"

// optionAliases renames invocation parameter keys to their Ollama option names.
var optionAliases = map[string]string{
	"max_tokens":            "num_predict",
	"max_completion_tokens": "num_predict",
	"stop_sequences":        "stop",
}

// Converter implements adapter.Converter for the Ollama Chat API.
type Converter struct {
	logger *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used by ToParams. Default is slog.Default() at call time.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// New returns a Converter for Ollama.
func New(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToOllama converts prompt with vars into an Ollama chat request.
// It returns nil and logs a warning through slog.Default() when the prompt cannot be converted.
func ToOllama(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *api.ChatRequest {
	return New().ToParams(prompt, vars)
}

// ToParams is the fail-closed form of Convert.
func (c *Converter) ToParams(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *api.ChatRequest {
	return adapter.SafeConvert(c.logger, ProviderName, prompt, func(p *promptsdk.PromptVersion) (*api.ChatRequest, error) {
		return c.Convert(p, vars)
	})
}

// Convert builds a chat request.
func (c *Converter) Convert(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (*api.ChatRequest, error) {
	if prompt == nil {
		return nil, fmt.Errorf("%w: nil prompt", promptsdk.ErrInvalidRecord)
	}
	msgs, err := adapter.PrepareMessages(prompt, vars)
	if err != nil {
		return nil, err
	}
	messages, err := adapter.MapMessages(msgs, message)
	if err != nil {
		return nil, err
	}
	tools, kept, err := adapter.MapTools(prompt.Tools, tool)
	if err != nil {
		return nil, err
	}
	// The chat API has no tool choice field; only "none" changes the request.
	choice, err := adapter.MapToolChoice(prompt.Tools, kept, func(tc adapter.ToolChoice) (adapter.ToolChoiceMode, error) {
		return tc.Mode, nil
	})
	if err != nil {
		return nil, err
	}
	if choice != nil && *choice == adapter.ToolChoiceModeNone {
		tools = nil
	}
	format, err := adapter.MapResponseFormat(prompt.ResponseFormat, func(rf promptsdk.ResponseFormat) (json.RawMessage, error) {
		return adapter.SchemaJSON(rf.Schema)
	})
	if err != nil {
		return nil, err
	}
	return adapter.Assemble(prompt.InvocationParameters, decodeOptions, func(r *api.ChatRequest) {
		r.Model = prompt.ModelName
		r.Messages = messages
		if len(tools) > 0 {
			r.Tools = tools
		}
		if format != nil {
			r.Format = *format
		}
	}, "format", "stream", "keep_alive")
}

// decodeOptions copies invocation parameters into ChatRequest.Options, renaming aliased keys.
func decodeOptions(params map[string]any, r *api.ChatRequest) error {
	opts := make(map[string]any, len(params))
	for k, v := range params {
		if alias, ok := optionAliases[k]; ok {
			if _, set := params[alias]; set {
				continue
			}
			k = alias
		}
		opts[k] = v
	}
	r.Options = opts
	return nil
}

func message(m promptsdk.PromptMessage) (api.Message, error) {
	switch m.Role {
	case promptsdk.RoleSystem, promptsdk.RoleDeveloper:
		if err := onlyText(m); err != nil {
			return api.Message{}, err
		}
		return api.Message{Role: "system", Content: adapter.TextFromParts(m.Content)}, nil
	case promptsdk.RoleUser:
		return userMessage(m)
	case promptsdk.RoleAssistant:
		return assistantMessage(m)
	case promptsdk.RoleTool:
		return toolMessage(m)
	default:
		return api.Message{}, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, m.Role)
	}
}

func onlyText(m promptsdk.PromptMessage) error {
	for _, p := range m.Content {
		if _, ok := p.(promptsdk.TextPart); !ok {
			return fmt.Errorf("%w: %T in %s message", adapter.ErrUnsupportedContent, p, m.Role)
		}
	}
	return nil
}

// userMessage accepts text and inline images. Ollama takes raw image bytes only, so remote URLs are rejected.
func userMessage(m promptsdk.PromptMessage) (api.Message, error) {
	var images []api.ImageData
	for _, p := range m.Content {
		switch x := p.(type) {
		case promptsdk.TextPart:
		case promptsdk.ImagePart:
			inline, err := media.DecodeImage(x.URL, x.MIMEType, 0)
			if err != nil {
				return api.Message{}, fmt.Errorf("%w: image %q: %w", adapter.ErrUnsupportedContent, x.URL, err)
			}
			images = append(images, api.ImageData(inline.Data))
		default:
			return api.Message{}, fmt.Errorf("%w: %T in user message", adapter.ErrUnsupportedContent, p)
		}
	}
	return api.Message{Role: "user", Content: adapter.TextFromParts(m.Content), Images: images}, nil
}

func assistantMessage(m promptsdk.PromptMessage) (api.Message, error) {
	var calls []api.ToolCall
	for _, p := range m.Content {
		switch x := p.(type) {
		case promptsdk.TextPart:
		case promptsdk.ToolCallPart:
			var args api.ToolCallFunctionArguments
			if x.Arguments != "" {
				if err := json.Unmarshal([]byte(x.Arguments), &args); err != nil {
					return api.Message{}, fmt.Errorf("%w: tool call %q: %w", adapter.ErrMalformedArgs, x.Name, err)
				}
			}
			calls = append(calls, api.ToolCall{
				ID: x.ToolCallID,
				Function: api.ToolCallFunction{
					Index:     len(calls),
					Name:      x.Name,
					Arguments: args,
				},
			})
		default:
			return api.Message{}, fmt.Errorf("%w: %T in assistant message", adapter.ErrUnsupportedContent, p)
		}
	}
	return api.Message{Role: "assistant", Content: adapter.TextFromParts(m.Content), ToolCalls: calls}, nil
}

// toolMessage requires exactly one tool result; Ollama carries one result per message.
func toolMessage(m promptsdk.PromptMessage) (api.Message, error) {
	var (
		result promptsdk.ToolResultPart
		found  int
	)
	for _, p := range m.Content {
		r, ok := p.(promptsdk.ToolResultPart)
		if !ok {
			return api.Message{}, fmt.Errorf("%w: %T in tool message", adapter.ErrUnsupportedContent, p)
		}
		result = r
		found++
	}
	if found != 1 {
		return api.Message{}, fmt.Errorf("%w: tool message needs exactly one tool result, got %d", adapter.ErrUnsupportedContent, found)
	}
	text, err := adapter.ToolResultText(result)
	if err != nil {
		return api.Message{}, err
	}
	return api.Message{Role: "tool", Content: text, ToolCallID: result.ToolCallID}, nil
}

func tool(t promptsdk.ToolDefinition) (api.Tool, error) {
	schema, err := adapter.FunctionParameters(t)
	if err != nil {
		return api.Tool{}, err
	}
	params := api.ToolFunctionParameters{
		Type:       "object",
		Properties: api.NewToolPropertiesMap(),
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return api.Tool{}, fmt.Errorf("%w: tool %q parameters: %w", adapter.ErrMalformedArgs, t.Name, err)
	}
	if err = json.Unmarshal(b, &params); err != nil {
		return api.Tool{}, fmt.Errorf("%w: tool %q parameters: %w", adapter.ErrMalformedArgs, t.Name, err)
	}
	if params.Properties == nil {
		params.Properties = api.NewToolPropertiesMap()
	}
	return api.Tool{
		Type: "function",
		Function: api.ToolFunction{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
	}, nil
}

// Compile-time check that Converter implements adapter.Converter.
var _ adapter.Converter[api.ChatRequest] = (*Converter)(nil)
