package anthropic

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/adapter"
	"github.com/skosovsky/promptsdk/internal/cast"
	"github.com/skosovsky/promptsdk/internal/media"
)

// ProviderName is used in diagnostics.
const ProviderName = "anthropic"

// DefaultMaxTokens is sent when invocation parameters do not set max_tokens.
const DefaultMaxTokens int64 = 1024

// Converter implements adapter.Converter for the Anthropic Messages API.
type Converter struct {
	logger    *slog.Logger
	maxTokens int64
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used by ToParams. Default is slog.Default() at call time.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithDefaultMaxTokens overrides DefaultMaxTokens. Non-positive values are ignored.
func WithDefaultMaxTokens(n int64) Option {
	return func(c *Converter) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// New returns a Converter for Anthropic.
func New(opts ...Option) *Converter {
	c := &Converter{maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToAnthropic converts prompt with vars into Anthropic message parameters.
// It returns nil and logs a warning through slog.Default() when the prompt cannot be converted.
func ToAnthropic(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *anthropic.MessageNewParams {
	return New().ToParams(prompt, vars)
}

// ToParams is the fail-closed form of Convert.
func (c *Converter) ToParams(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *anthropic.MessageNewParams {
	return adapter.SafeConvert(c.logger, ProviderName, prompt, func(p *promptsdk.PromptVersion) (*anthropic.MessageNewParams, error) {
		return c.Convert(p, vars)
	})
}

// Convert builds message parameters.
func (c *Converter) Convert(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (*anthropic.MessageNewParams, error) {
	if prompt == nil {
		return nil, fmt.Errorf("%w: nil prompt", promptsdk.ErrInvalidRecord)
	}
	msgs, err := adapter.PrepareMessages(prompt, vars)
	if err != nil {
		return nil, err
	}
	var system []anthropic.TextBlockParam
	messages, err := adapter.MapMessages(msgs, func(m promptsdk.PromptMessage) (anthropic.MessageParam, error) {
		if m.Role == promptsdk.RoleSystem || m.Role == promptsdk.RoleDeveloper {
			blocks, err := systemBlocks(m)
			if err != nil {
				return anthropic.MessageParam{}, err
			}
			system = append(system, blocks...)
			return anthropic.MessageParam{}, adapter.SkipMessage()
		}
		return message(m)
	})
	if err != nil {
		return nil, err
	}
	tools, kept, err := adapter.MapTools(prompt.Tools, toolParam)
	if err != nil {
		return nil, err
	}
	disableParallel := prompt.Tools != nil && prompt.Tools.DisableParallelToolCalls
	choice, err := adapter.MapToolChoice(prompt.Tools, kept, func(tc adapter.ToolChoice) (anthropic.ToolChoiceUnionParam, error) {
		return toolChoiceParam(tc, disableParallel)
	})
	if err != nil {
		return nil, err
	}
	if choice == nil && disableParallel && len(kept) > 0 {
		auto, _ := toolChoiceParam(adapter.ToolChoice{Mode: adapter.ToolChoiceModeAuto}, true)
		choice = &auto
	}
	format, err := adapter.MapResponseFormat(prompt.ResponseFormat, func(rf promptsdk.ResponseFormat) (anthropic.JSONOutputFormatParam, error) {
		return anthropic.JSONOutputFormatParam{Schema: maps.Clone(rf.Schema)}, nil
	})
	if err != nil {
		return nil, err
	}
	maxTokens := c.maxTokens
	if v, ok := prompt.InvocationParameters["max_tokens"]; ok {
		if n, ok := cast.ToInt64(v); ok && n > 0 {
			maxTokens = n
		}
	}
	return adapter.Assemble(prompt.InvocationParameters, nil, func(p *anthropic.MessageNewParams) {
		p.Model = anthropic.Model(prompt.ModelName)
		p.MaxTokens = maxTokens
		p.Messages = messages
		p.System = system
		p.Tools = tools
		p.ToolChoice = anthropic.ToolChoiceUnionParam{}
		if choice != nil {
			p.ToolChoice = *choice
		}
		p.OutputConfig.Format = anthropic.JSONOutputFormatParam{}
		if format != nil {
			p.OutputConfig.Format = *format
		}
	}, "system", "max_tokens")
}

func systemBlocks(m promptsdk.PromptMessage) ([]anthropic.TextBlockParam, error) {
	var out []anthropic.TextBlockParam
	for _, p := range m.Content {
		tp, ok := p.(promptsdk.TextPart)
		if !ok {
			return nil, fmt.Errorf("%w: %T in %s message", adapter.ErrUnsupportedContent, p, m.Role)
		}
		if tp.Text != "" {
			out = append(out, anthropic.TextBlockParam{Text: tp.Text})
		}
	}
	return out, nil
}

func message(m promptsdk.PromptMessage) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range m.Content {
		block, skip, err := contentBlock(m.Role, p)
		if err != nil {
			return anthropic.MessageParam{}, err
		}
		if !skip {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) == 0 {
		return anthropic.MessageParam{}, fmt.Errorf("%w: %s message has no content", adapter.ErrUnsupportedContent, m.Role)
	}
	switch m.Role {
	case promptsdk.RoleUser, promptsdk.RoleTool:
		return anthropic.NewUserMessage(blocks...), nil
	case promptsdk.RoleAssistant:
		return anthropic.NewAssistantMessage(blocks...), nil
	default:
		return anthropic.MessageParam{}, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, m.Role)
	}
}

// contentBlock maps one part for role. Empty text is skipped since the API rejects empty text blocks.
func contentBlock(role promptsdk.Role, p promptsdk.ContentPart) (anthropic.ContentBlockParamUnion, bool, error) {
	switch x := p.(type) {
	case promptsdk.TextPart:
		if role == promptsdk.RoleTool {
			break
		}
		return anthropic.NewTextBlock(x.Text), x.Text == "", nil
	case promptsdk.ImagePart:
		if role != promptsdk.RoleUser {
			break
		}
		block, err := imageBlock(x)
		return block, false, err
	case promptsdk.ToolCallPart:
		if role != promptsdk.RoleAssistant {
			break
		}
		args, err := adapter.ToolCallArguments(x)
		if err != nil {
			return anthropic.ContentBlockParamUnion{}, false, err
		}
		return anthropic.NewToolUseBlock(x.ToolCallID, args, x.Name), false, nil
	case promptsdk.ToolResultPart:
		if role != promptsdk.RoleUser && role != promptsdk.RoleTool {
			break
		}
		text, err := adapter.ToolResultText(x)
		if err != nil {
			return anthropic.ContentBlockParamUnion{}, false, err
		}
		return anthropic.NewToolResultBlock(x.ToolCallID, text, x.IsError), false, nil
	}
	return anthropic.ContentBlockParamUnion{}, false, fmt.Errorf("%w: %T in %s message", adapter.ErrUnsupportedContent, p, role)
}

func imageBlock(p promptsdk.ImagePart) (anthropic.ContentBlockParamUnion, error) {
	switch {
	case media.IsDataURI(p.URL):
		inline, err := media.DecodeImage(p.URL, p.MIMEType, 0)
		if err != nil {
			return anthropic.ContentBlockParamUnion{}, fmt.Errorf("%w: %w", adapter.ErrUnsupportedContent, err)
		}
		return anthropic.NewImageBlockBase64(inline.MIMEType, inline.Base64), nil
	case media.IsRemote(p.URL):
		return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: p.URL}), nil
	default:
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("%w: image URL %q", adapter.ErrUnsupportedContent, p.URL)
	}
}

func toolParam(t promptsdk.ToolDefinition) (anthropic.ToolUnionParam, error) {
	params, err := adapter.FunctionParameters(t)
	if err != nil {
		return anthropic.ToolUnionParam{}, err
	}
	schema, err := inputSchema(params)
	if err != nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("tool %q: %w", t.Name, err)
	}
	tool := anthropic.ToolUnionParamOfTool(schema, t.Name)
	if t.Description != "" {
		tool.OfTool.Description = anthropic.String(t.Description)
	}
	if t.Strict != nil {
		tool.OfTool.Strict = anthropic.Bool(*t.Strict)
	}
	return tool, nil
}

// inputSchema splits a JSON Schema object into the SDK's typed fields and ExtraFields.
func inputSchema(params map[string]any) (anthropic.ToolInputSchemaParam, error) {
	schema := anthropic.ToolInputSchemaParam{}
	extra := map[string]any{}
	for k, v := range params {
		switch k {
		case "type":
			if s, ok := v.(string); !ok || s != "object" {
				return schema, fmt.Errorf("%w: input schema type must be \"object\", got %v", adapter.ErrMalformedArgs, v)
			}
		case "properties":
			schema.Properties = v
		case "required":
			req, ok := cast.ToStringSlice(v)
			if !ok {
				return schema, fmt.Errorf("%w: required must be a list of strings", adapter.ErrMalformedArgs)
			}
			schema.Required = req
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		schema.ExtraFields = extra
	}
	return schema, nil
}

func toolChoiceParam(tc adapter.ToolChoice, disableParallel bool) (anthropic.ToolChoiceUnionParam, error) {
	var parallel anthropic.ToolChoiceAutoParam
	if disableParallel {
		parallel.DisableParallelToolUse = anthropic.Bool(true)
	}
	switch tc.Mode {
	case adapter.ToolChoiceModeNone:
		none := anthropic.NewToolChoiceNoneParam()
		return anthropic.ToolChoiceUnionParam{OfNone: &none}, nil
	case adapter.ToolChoiceModeAuto:
		return anthropic.ToolChoiceUnionParam{OfAuto: &parallel}, nil
	case adapter.ToolChoiceModeRequired:
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{
			DisableParallelToolUse: parallel.DisableParallelToolUse,
		}}, nil
	case adapter.ToolChoiceModeFunction:
		return anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{
			Name:                   tc.Function,
			DisableParallelToolUse: parallel.DisableParallelToolUse,
		}}, nil
	default:
		return anthropic.ToolChoiceUnionParam{}, fmt.Errorf("unknown tool choice mode %q", tc.Mode)
	}
}

// Compile-time check that Converter implements adapter.Converter.
var _ adapter.Converter[anthropic.MessageNewParams] = (*Converter)(nil)
