package promptsdk

import (
	"context"
	"slices"
)

// Role is the message role in a chat (system, developer, user, assistant, tool).
type Role string

// Chat message roles.
const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ModelProvider names the provider a prompt version was authored for.
type ModelProvider string

// Supported providers.
const (
	ProviderOpenAI      ModelProvider = "OPENAI"
	ProviderAzureOpenAI ModelProvider = "AZURE_OPENAI"
	ProviderAnthropic   ModelProvider = "ANTHROPIC"
	ProviderGoogle      ModelProvider = "GOOGLE"
	ProviderOllama      ModelProvider = "OLLAMA"
)

// TemplateFormat names the placeholder syntax used inside message templates.
type TemplateFormat string

// Template formats. The empty value behaves as TemplateFormatNone.
const (
	TemplateFormatMustache TemplateFormat = "MUSTACHE"
	TemplateFormatFString  TemplateFormat = "F_STRING"
	TemplateFormatNone     TemplateFormat = "NONE"
)

// ContentPart is a sealed interface for message parts. Only package types implement it via isContentPart().
type ContentPart interface {
	isContentPart()
}

// TextPart holds plain text content. It is the only part the formatter interpolates.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

// ImagePart references an image by URL (https or data: URI).
type ImagePart struct {
	URL      string `validate:"required"`
	MIMEType string
}

func (ImagePart) isContentPart() {}

// ToolCallPart represents an assistant request to call a function.
type ToolCallPart struct {
	ToolCallID string
	Name       string `validate:"required"`
	Arguments  string // JSON object; empty means no arguments
}

func (ToolCallPart) isContentPart() {}

// ToolResultPart is the result of a tool call (in a message with RoleTool).
// Result is sent verbatim when it is a string and as JSON otherwise.
type ToolResultPart struct {
	ToolCallID string
	Name       string
	Result     any
	IsError    bool
}

func (ToolResultPart) isContentPart() {}

// PromptMessage is one role-tagged message template.
type PromptMessage struct {
	Role    Role          `validate:"required"`
	Content []ContentPart `validate:"dive"`
}

// Template is the sealed template variant of a prompt version.
// Only *ChatTemplate is convertible to chat parameters.
type Template interface {
	isTemplate()
}

// ChatTemplate is an ordered list of message templates.
type ChatTemplate struct {
	Messages []PromptMessage `validate:"dive"`
}

func (*ChatTemplate) isTemplate() {}

// StringTemplate is a single raw completion template.
type StringTemplate struct {
	Template string
}

func (*StringTemplate) isTemplate() {}

// ToolKind distinguishes plain function tools from provider built-ins.
type ToolKind string

// ToolKindFunction is the only kind every provider understands. Empty Kind means function.
const ToolKindFunction ToolKind = "function"

// ToolDefinition is the universal tool schema.
type ToolDefinition struct {
	Kind        ToolKind       `json:"type,omitempty"`
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON Schema for parameters
	Strict      *bool          `json:"strict,omitempty"`
}

// IsFunction reports whether the tool is a plain function tool.
func (t ToolDefinition) IsFunction() bool {
	return t.Kind == "" || t.Kind == ToolKindFunction
}

// ToolChoiceType is the prompt-level tool choice vocabulary.
type ToolChoiceType string

// Tool choice directives.
const (
	ToolChoiceNone             ToolChoiceType = "none"
	ToolChoiceZeroOrMore       ToolChoiceType = "zero_or_more"
	ToolChoiceOneOrMore        ToolChoiceType = "one_or_more"
	ToolChoiceSpecificFunction ToolChoiceType = "specific_function"
)

// ToolChoice is the prompt's tool choice directive. FunctionName is required for ToolChoiceSpecificFunction.
type ToolChoice struct {
	Type         ToolChoiceType `validate:"required"`
	FunctionName string         `validate:"required_if=Type specific_function"`
}

// Tools groups tool definitions with the tool choice directive.
type Tools struct {
	Tools                    []ToolDefinition `validate:"dive"`
	ToolChoice               *ToolChoice
	DisableParallelToolCalls bool
}

// ResponseFormat is a JSON Schema constraint on the model output.
type ResponseFormat struct {
	Name        string `validate:"required"`
	Description string
	Schema      map[string]any
	Strict      bool
}

// Variables binds placeholder names to substitution values. Nil means "do not interpolate".
type Variables map[string]any

// PromptVersion is one stored prompt record. It is read-only to converters.
type PromptVersion struct {
	ID                   string
	Name                 string
	Description          string
	Tag                  string // set by registries when loading by tag; not part of the record
	ModelProvider        ModelProvider
	ModelName            string         `validate:"required"`
	InvocationParameters map[string]any // opaque, passed through to the provider
	Template             Template       `validate:"required"`
	TemplateFormat       TemplateFormat `validate:"omitempty,oneof=MUSTACHE F_STRING NONE"`
	Tools                *Tools
	ResponseFormat       *ResponseFormat
}

// Label returns the identifier used in diagnostics: ID when set, otherwise Name.
func (p *PromptVersion) Label() string {
	if p == nil {
		return ""
	}
	if p.ID != "" {
		return p.ID
	}
	return p.Name
}

// Messages returns the chat messages when the template is a *ChatTemplate.
func (p *PromptVersion) Messages() ([]PromptMessage, bool) {
	if p == nil {
		return nil, false
	}
	chat, ok := p.Template.(*ChatTemplate)
	if !ok || chat == nil {
		return nil, false
	}
	return chat.Messages, true
}

// PromptRegistry returns a prompt version by name and tag (e.g. "production").
type PromptRegistry interface {
	GetPrompt(ctx context.Context, name, tag string) (*PromptVersion, error)
}

// CloneVersion returns a deep copy of p: nested JSON values (schemas, invocation
// parameters, tool results) are copied too. Registries use this so callers cannot
// mutate cached records.
func CloneVersion(p *PromptVersion) *PromptVersion {
	if p == nil {
		return nil
	}
	out := *p
	if p.InvocationParameters != nil {
		out.InvocationParameters = cloneMap(p.InvocationParameters)
	}
	switch t := p.Template.(type) {
	case *ChatTemplate:
		if t != nil {
			out.Template = &ChatTemplate{Messages: cloneMessages(t.Messages)}
		}
	case *StringTemplate:
		if t != nil {
			st := *t
			out.Template = &st
		}
	}
	if p.Tools != nil {
		tools := *p.Tools
		tools.Tools = slices.Clone(p.Tools.Tools)
		for i, td := range tools.Tools {
			tools.Tools[i].Parameters = cloneMap(td.Parameters)
			if td.Strict != nil {
				strict := *td.Strict
				tools.Tools[i].Strict = &strict
			}
		}
		if p.Tools.ToolChoice != nil {
			tc := *p.Tools.ToolChoice
			tools.ToolChoice = &tc
		}
		out.Tools = &tools
	}
	if p.ResponseFormat != nil {
		rf := *p.ResponseFormat
		rf.Schema = cloneMap(p.ResponseFormat.Schema)
		out.ResponseFormat = &rf
	}
	return &out
}

func cloneMessages(msgs []PromptMessage) []PromptMessage {
	if msgs == nil {
		return nil
	}
	out := make([]PromptMessage, len(msgs))
	for i, m := range msgs {
		content := slices.Clone(m.Content)
		for j, part := range content {
			if tr, ok := part.(ToolResultPart); ok {
				tr.Result = deepClone(tr.Result)
				content[j] = tr
			}
		}
		out[i] = PromptMessage{Role: m.Role, Content: content}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepClone(v)
	}
	return out
}

// deepClone copies the containers produced by decoding JSON or YAML. Other values are
// returned as-is.
func deepClone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepClone(e)
		}
		return out
	case []string:
		return slices.Clone(x)
	default:
		return v
	}
}
