package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/skosovsky/promptsdk"

	"gopkg.in/yaml.v3"
)

// fileRecord is the stored prompt version shape. JSON documents parse through the same
// tags since YAML is a superset of JSON.
type fileRecord struct {
	ID                   string          `yaml:"id"`
	Name                 string          `yaml:"name"`
	Description          string          `yaml:"description"`
	ModelProvider        string          `yaml:"model_provider"`
	ModelName            string          `yaml:"model_name"`
	TemplateFormat       string          `yaml:"template_format"`
	Template             fileTemplate    `yaml:"template"`
	InvocationParameters map[string]any  `yaml:"invocation_parameters"`
	Tools                *fileTools      `yaml:"tools"`
	ResponseFormat       *fileRespFormat `yaml:"response_format"`
}

type fileTemplate struct {
	Type     string        `yaml:"type"`
	Messages []fileMessage `yaml:"messages"`
	Template string        `yaml:"template"`
}

type fileMessage struct {
	Role    string      `yaml:"role"`
	Content fileContent `yaml:"content"`
}

// fileContent accepts either a plain string or a list of typed parts.
type fileContent []filePart

func (c *fileContent) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var text string
		if err := node.Decode(&text); err != nil {
			return err
		}
		*c = fileContent{{Type: "text", Text: text}}
		return nil
	}
	var parts []filePart
	if err := node.Decode(&parts); err != nil {
		return err
	}
	*c = parts
	return nil
}

type filePart struct {
	Type       string        `yaml:"type"`
	Text       string        `yaml:"text"`
	Image      *fileImage    `yaml:"image"`
	ToolCallID string        `yaml:"tool_call_id"`
	ToolCall   *fileToolCall `yaml:"tool_call"`
	ToolResult any           `yaml:"tool_result"`
	Name       string        `yaml:"name"`
	IsError    bool          `yaml:"is_error"`
}

type fileImage struct {
	URL      string `yaml:"url"`
	MIMEType string `yaml:"mime_type"`
}

type fileToolCall struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name"`
	Arguments string `yaml:"arguments"`
}

type fileTools struct {
	Tools                    []fileTool      `yaml:"tools"`
	ToolChoice               *fileToolChoice `yaml:"tool_choice"`
	DisableParallelToolCalls bool            `yaml:"disable_parallel_tool_calls"`
}

type fileTool struct {
	Type     string        `yaml:"type"`
	Name     string        `yaml:"name"`
	Function *fileFunction `yaml:"function"`
}

type fileFunction struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
	Strict      *bool          `yaml:"strict"`
}

type fileToolChoice struct {
	Type         string `yaml:"type"`
	FunctionName string `yaml:"function_name"`
}

type fileRespFormat struct {
	Type       string `yaml:"type"`
	JSONSchema struct {
		Name        string         `yaml:"name"`
		Description string         `yaml:"description"`
		Schema      map[string]any `yaml:"schema"`
		Strict      bool           `yaml:"strict"`
	} `yaml:"json_schema"`
}

// roleAliases maps stored role spellings onto the data model.
var roleAliases = map[string]promptsdk.Role{
	"system":    promptsdk.RoleSystem,
	"developer": promptsdk.RoleDeveloper,
	"user":      promptsdk.RoleUser,
	"human":     promptsdk.RoleUser,
	"assistant": promptsdk.RoleAssistant,
	"ai":        promptsdk.RoleAssistant,
	"model":     promptsdk.RoleAssistant,
	"tool":      promptsdk.RoleTool,
}

// ParseBytes parses a YAML or JSON prompt record and validates it with promptsdk.ValidateRecord.
func ParseBytes(data []byte) (*promptsdk.PromptVersion, error) {
	var rec fileRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", promptsdk.ErrInvalidRecord, err)
	}
	p, err := buildVersion(&rec)
	if err != nil {
		return nil, err
	}
	if err := promptsdk.ValidateRecord(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseFile reads and parses a record file.
func ParseFile(path string) (*promptsdk.PromptVersion, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseFS reads and parses a record from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*promptsdk.PromptVersion, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data)
}

func buildVersion(rec *fileRecord) (*promptsdk.PromptVersion, error) {
	p := &promptsdk.PromptVersion{
		ID:                   rec.ID,
		Name:                 rec.Name,
		Description:          rec.Description,
		ModelProvider:        promptsdk.ModelProvider(strings.ToUpper(rec.ModelProvider)),
		ModelName:            rec.ModelName,
		TemplateFormat:       promptsdk.TemplateFormat(strings.ToUpper(rec.TemplateFormat)),
		InvocationParameters: unwrapInvocation(rec.InvocationParameters),
	}
	tpl, err := buildTemplate(rec.Template)
	if err != nil {
		return nil, err
	}
	p.Template = tpl
	if rec.Tools != nil {
		tools, err := buildTools(rec.Tools)
		if err != nil {
			return nil, err
		}
		p.Tools = tools
	}
	if rf := rec.ResponseFormat; rf != nil {
		if rf.Type != "" && rf.Type != "json_schema" {
			return nil, fmt.Errorf("%w: response_format: unknown type %q", promptsdk.ErrInvalidRecord, rf.Type)
		}
		p.ResponseFormat = &promptsdk.ResponseFormat{
			Name:        rf.JSONSchema.Name,
			Description: rf.JSONSchema.Description,
			Schema:      rf.JSONSchema.Schema,
			Strict:      rf.JSONSchema.Strict,
		}
	}
	return p, nil
}

// unwrapInvocation accepts both flat parameters and the provider-tagged form
// {"type": "openai", "openai": {...}}.
func unwrapInvocation(params map[string]any) map[string]any {
	if len(params) != 2 {
		return params
	}
	tag, ok := params["type"].(string)
	if !ok {
		return params
	}
	if inner, ok := params[tag].(map[string]any); ok {
		return inner
	}
	return params
}

func buildTemplate(t fileTemplate) (promptsdk.Template, error) {
	switch strings.ToLower(t.Type) {
	case "chat", "":
		if len(t.Messages) == 0 {
			return nil, fmt.Errorf("%w: template: missing messages", promptsdk.ErrInvalidRecord)
		}
		msgs := make([]promptsdk.PromptMessage, 0, len(t.Messages))
		for i, m := range t.Messages {
			msg, err := buildMessage(m)
			if err != nil {
				return nil, fmt.Errorf("%w: message %d: %w", promptsdk.ErrInvalidRecord, i, err)
			}
			msgs = append(msgs, msg)
		}
		return &promptsdk.ChatTemplate{Messages: msgs}, nil
	case "string":
		return &promptsdk.StringTemplate{Template: t.Template}, nil
	default:
		return nil, fmt.Errorf("%w: template: unknown type %q", promptsdk.ErrInvalidRecord, t.Type)
	}
}

func buildMessage(m fileMessage) (promptsdk.PromptMessage, error) {
	role, ok := roleAliases[strings.ToLower(m.Role)]
	if !ok {
		return promptsdk.PromptMessage{}, fmt.Errorf("invalid role %q", m.Role)
	}
	parts := make([]promptsdk.ContentPart, 0, len(m.Content))
	for j, fp := range m.Content {
		part, err := buildPart(fp)
		if err != nil {
			return promptsdk.PromptMessage{}, fmt.Errorf("part %d: %w", j, err)
		}
		parts = append(parts, part)
	}
	return promptsdk.PromptMessage{Role: role, Content: parts}, nil
}

func buildPart(fp filePart) (promptsdk.ContentPart, error) {
	switch fp.Type {
	case "text":
		return promptsdk.TextPart{Text: fp.Text}, nil
	case "image":
		if fp.Image == nil {
			return nil, errors.New("image part without image")
		}
		return promptsdk.ImagePart{URL: fp.Image.URL, MIMEType: fp.Image.MIMEType}, nil
	case "tool_call":
		if fp.ToolCall == nil {
			return nil, errors.New("tool_call part without tool_call")
		}
		return promptsdk.ToolCallPart{
			ToolCallID: fp.ToolCallID,
			Name:       fp.ToolCall.Name,
			Arguments:  fp.ToolCall.Arguments,
		}, nil
	case "tool_result":
		return promptsdk.ToolResultPart{
			ToolCallID: fp.ToolCallID,
			Name:       fp.Name,
			Result:     fp.ToolResult,
			IsError:    fp.IsError,
		}, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", fp.Type)
	}
}

func buildTools(ft *fileTools) (*promptsdk.Tools, error) {
	out := &promptsdk.Tools{DisableParallelToolCalls: ft.DisableParallelToolCalls}
	for i, t := range ft.Tools {
		switch {
		case t.Function != nil:
			out.Tools = append(out.Tools, promptsdk.ToolDefinition{
				Kind:        promptsdk.ToolKind(t.Type),
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
				Strict:      t.Function.Strict,
			})
		case t.Type != "" && t.Type != string(promptsdk.ToolKindFunction):
			name := t.Name
			if name == "" {
				name = t.Type
			}
			out.Tools = append(out.Tools, promptsdk.ToolDefinition{Kind: promptsdk.ToolKind(t.Type), Name: name})
		default:
			return nil, fmt.Errorf("%w: tools[%d]: function tool without function", promptsdk.ErrInvalidRecord, i)
		}
	}
	if tc := ft.ToolChoice; tc != nil {
		out.ToolChoice = &promptsdk.ToolChoice{
			Type:         promptsdk.ToolChoiceType(tc.Type),
			FunctionName: tc.FunctionName,
		}
	}
	return out, nil
}
