package openai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/adapter"
)

// Provider names used in diagnostics.
const (
	ProviderName      = "openai"
	AzureProviderName = "azure_openai"
)

// Converter implements adapter.Converter for the OpenAI Chat Completions API.
type Converter struct {
	logger      *slog.Logger
	provider    string
	imageDetail string
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used by ToParams. Default is slog.Default() at call time.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithImageDetail sets the detail level sent with image parts ("auto", "low", "high").
func WithImageDetail(detail string) Option {
	return func(c *Converter) { c.imageDetail = detail }
}

// New returns a Converter for OpenAI.
func New(opts ...Option) *Converter {
	c := &Converter{provider: ProviderName, imageDetail: "auto"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewAzure returns a Converter labelled for Azure OpenAI, which accepts the same parameters.
func NewAzure(opts ...Option) *Converter {
	c := New(opts...)
	c.provider = AzureProviderName
	return c
}

// ToOpenAI converts prompt with vars into OpenAI chat completion parameters.
// It returns nil and logs a warning through slog.Default() when the prompt cannot be converted.
func ToOpenAI(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *openai.ChatCompletionNewParams {
	return New().ToParams(prompt, vars)
}

// ToAzureOpenAI is ToOpenAI for prompts authored against Azure OpenAI deployments.
func ToAzureOpenAI(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *openai.ChatCompletionNewParams {
	return NewAzure().ToParams(prompt, vars)
}

// ToParams is the fail-closed form of Convert.
func (c *Converter) ToParams(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *openai.ChatCompletionNewParams {
	return adapter.SafeConvert(c.logger, c.provider, prompt, func(p *promptsdk.PromptVersion) (*openai.ChatCompletionNewParams, error) {
		return c.Convert(p, vars)
	})
}

// Convert builds chat completion parameters. Invocation parameters are decoded first;
// model, messages, tools, tool_choice and response_format always come from the prompt.
func (c *Converter) Convert(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (*openai.ChatCompletionNewParams, error) {
	if prompt == nil {
		return nil, fmt.Errorf("%w: nil prompt", promptsdk.ErrInvalidRecord)
	}
	msgs, err := adapter.PrepareMessages(prompt, vars)
	if err != nil {
		return nil, err
	}
	messages, err := adapter.MapMessages(msgs, c.message)
	if err != nil {
		return nil, err
	}
	tools, kept, err := adapter.MapTools(prompt.Tools, toolParam)
	if err != nil {
		return nil, err
	}
	choice, err := adapter.MapToolChoice(prompt.Tools, kept, toolChoiceParam)
	if err != nil {
		return nil, err
	}
	format, err := adapter.MapResponseFormat(prompt.ResponseFormat, responseFormatParam)
	if err != nil {
		return nil, err
	}
	return adapter.Assemble(prompt.InvocationParameters, nil, func(p *openai.ChatCompletionNewParams) {
		p.Model = shared.ChatModel(prompt.ModelName) //nolint:unconvert // ChatModel is a distinct type
		p.Messages = messages
		p.Tools = tools
		p.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{}
		if choice != nil {
			p.ToolChoice = *choice
		}
		p.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{}
		if format != nil {
			p.ResponseFormat = *format
		}
		switch {
		case len(tools) == 0:
			p.ParallelToolCalls = param.Opt[bool]{}
		case prompt.Tools.DisableParallelToolCalls:
			p.ParallelToolCalls = openai.Bool(false)
		}
	})
}

func (c *Converter) message(msg promptsdk.PromptMessage) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case promptsdk.RoleSystem, promptsdk.RoleDeveloper:
		text, err := textOnly(msg)
		if err != nil {
			return openai.ChatCompletionMessageParamUnion{}, err
		}
		if msg.Role == promptsdk.RoleDeveloper {
			return openai.DeveloperMessage(text), nil
		}
		return openai.SystemMessage(text), nil
	case promptsdk.RoleUser:
		return c.userMessage(msg.Content)
	case promptsdk.RoleAssistant:
		return assistantMessage(msg.Content)
	case promptsdk.RoleTool:
		return toolResultMessage(msg.Content)
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, msg.Role)
	}
}

func textOnly(msg promptsdk.PromptMessage) (string, error) {
	for _, p := range msg.Content {
		if _, ok := p.(promptsdk.TextPart); !ok {
			return "", fmt.Errorf("%w: %T in %s message", adapter.ErrUnsupportedContent, p, msg.Role)
		}
	}
	return adapter.TextFromParts(msg.Content), nil
}

func (c *Converter) userMessage(parts []promptsdk.ContentPart) (openai.ChatCompletionMessageParamUnion, error) {
	var contentParts []openai.ChatCompletionContentPartUnionParam
	hasImage := false
	for _, p := range parts {
		switch x := p.(type) {
		case promptsdk.TextPart:
			contentParts = append(contentParts, openai.TextContentPart(x.Text))
		case promptsdk.ImagePart:
			if x.URL == "" {
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: image without URL", adapter.ErrUnsupportedContent)
			}
			hasImage = true
			contentParts = append(contentParts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    x.URL,
				Detail: c.imageDetail,
			}))
		default:
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: %T in user message", adapter.ErrUnsupportedContent, p)
		}
	}
	if !hasImage {
		return openai.UserMessage(adapter.TextFromParts(parts)), nil
	}
	return openai.UserMessage(contentParts), nil
}

func assistantMessage(parts []promptsdk.ContentPart) (openai.ChatCompletionMessageParamUnion, error) {
	var toolCalls []openai.ChatCompletionMessageToolCallUnionParam
	for _, p := range parts {
		switch x := p.(type) {
		case promptsdk.TextPart:
		case promptsdk.ToolCallPart:
			args := x.Arguments
			if args == "" {
				args = "{}"
			}
			if !json.Valid([]byte(args)) {
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: tool call %q", adapter.ErrMalformedArgs, x.Name)
			}
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: x.ToolCallID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      x.Name,
						Arguments: args,
					},
				},
			})
		default:
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: %T in assistant message", adapter.ErrUnsupportedContent, p)
		}
	}
	text := adapter.TextFromParts(parts)
	if len(toolCalls) == 0 {
		return openai.AssistantMessage(text), nil
	}
	msg := &openai.ChatCompletionAssistantMessageParam{
		ToolCalls: toolCalls,
		Role:      constant.Assistant("assistant"),
	}
	if text != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: msg}, nil
}

func toolResultMessage(parts []promptsdk.ContentPart) (openai.ChatCompletionMessageParamUnion, error) {
	var result *promptsdk.ToolResultPart
	for _, p := range parts {
		tr, ok := p.(promptsdk.ToolResultPart)
		if !ok {
			continue
		}
		if result != nil {
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: more than one tool result in a tool message", adapter.ErrUnsupportedContent)
		}
		result = &tr
	}
	if result == nil {
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: tool message missing ToolResultPart", adapter.ErrUnsupportedContent)
	}
	text, err := adapter.ToolResultText(*result)
	if err != nil {
		return openai.ChatCompletionMessageParamUnion{}, err
	}
	return openai.ToolMessage(text, result.ToolCallID), nil
}

func toolParam(t promptsdk.ToolDefinition) (openai.ChatCompletionToolUnionParam, error) {
	params, err := adapter.FunctionParameters(t)
	if err != nil {
		return openai.ChatCompletionToolUnionParam{}, err
	}
	def := shared.FunctionDefinitionParam{
		Name:       t.Name,
		Parameters: shared.FunctionParameters(params),
	}
	if t.Description != "" {
		def.Description = openai.String(t.Description)
	}
	if t.Strict != nil {
		def.Strict = openai.Bool(*t.Strict)
	}
	return openai.ChatCompletionFunctionTool(def), nil
}

func toolChoiceParam(tc adapter.ToolChoice) (openai.ChatCompletionToolChoiceOptionUnionParam, error) {
	switch tc.Mode {
	case adapter.ToolChoiceModeNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoNone))}, nil
	case adapter.ToolChoiceModeAuto:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoAuto))}, nil
	case adapter.ToolChoiceModeRequired:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired))}, nil
	case adapter.ToolChoiceModeFunction:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: tc.Function},
			},
		}, nil
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{}, fmt.Errorf("unknown tool choice mode %q", tc.Mode)
	}
}

func responseFormatParam(rf promptsdk.ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	schema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   rf.Name,
		Schema: maps.Clone(rf.Schema),
	}
	if rf.Description != "" {
		schema.Description = openai.String(rf.Description)
	}
	if rf.Strict {
		schema.Strict = openai.Bool(true)
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: schema},
	}, nil
}

// Compile-time check that Converter implements adapter.Converter.
var _ adapter.Converter[openai.ChatCompletionNewParams] = (*Converter)(nil)
