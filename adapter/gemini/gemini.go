package gemini

import (
	"fmt"
	"log/slog"
	"math"

	"google.golang.org/genai"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/adapter"
	"github.com/skosovsky/promptsdk/internal/cast"
	"github.com/skosovsky/promptsdk/internal/media"
)

// ProviderName is used in diagnostics.
const ProviderName = "gemini"

// DefaultImageMIME is used for remote images whose part carries no MIME type.
const DefaultImageMIME = "image/png"

// Request wraps Model, Contents and Config for the GenerateContent call.
type Request struct {
	Model    string                       `json:"model"`
	Contents []*genai.Content             `json:"contents"`
	Config   *genai.GenerateContentConfig `json:"config,omitempty"`
}

// Converter implements adapter.Converter for the Google Gemini (genai) API.
type Converter struct {
	logger *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used by ToParams. Default is slog.Default() at call time.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// New returns a Converter for Gemini.
func New(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToGemini converts prompt with vars into a Gemini request.
// It returns nil and logs a warning through slog.Default() when the prompt cannot be converted.
func ToGemini(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *Request {
	return New().ToParams(prompt, vars)
}

// ToParams is the fail-closed form of Convert.
func (c *Converter) ToParams(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) *Request {
	return adapter.SafeConvert(c.logger, ProviderName, prompt, func(p *promptsdk.PromptVersion) (*Request, error) {
		return c.Convert(p, vars)
	})
}

// Convert builds a Gemini request.
func (c *Converter) Convert(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (*Request, error) {
	if prompt == nil {
		return nil, fmt.Errorf("%w: nil prompt", promptsdk.ErrInvalidRecord)
	}
	msgs, err := adapter.PrepareMessages(prompt, vars)
	if err != nil {
		return nil, err
	}
	var system []*genai.Part
	contents, err := adapter.MapMessages(msgs, func(m promptsdk.PromptMessage) (*genai.Content, error) {
		if m.Role == promptsdk.RoleSystem || m.Role == promptsdk.RoleDeveloper {
			parts, err := systemParts(m)
			if err != nil {
				return nil, err
			}
			system = append(system, parts...)
			return nil, adapter.SkipMessage()
		}
		return content(m)
	})
	if err != nil {
		return nil, err
	}
	decls, kept, err := adapter.MapTools(prompt.Tools, functionDeclaration)
	if err != nil {
		return nil, err
	}
	toolConfig, err := adapter.MapToolChoice(prompt.Tools, kept, functionCallingConfig)
	if err != nil {
		return nil, err
	}
	format, err := adapter.MapResponseFormat(prompt.ResponseFormat, func(rf promptsdk.ResponseFormat) (responseSchema, error) {
		typed, raw := schemaFor(rf.Schema)
		return responseSchema{typed: typed, raw: raw}, nil
	})
	if err != nil {
		return nil, err
	}
	return adapter.Assemble(prompt.InvocationParameters, decodeConfig, func(r *Request) {
		r.Model = prompt.ModelName
		r.Contents = contents
		if r.Config == nil {
			r.Config = &genai.GenerateContentConfig{}
		}
		if len(system) > 0 {
			r.Config.SystemInstruction = &genai.Content{Parts: system}
		}
		if len(decls) > 0 {
			r.Config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		}
		if toolConfig != nil {
			r.Config.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: *toolConfig}
		}
		if format != nil {
			r.Config.ResponseMIMEType = "application/json"
			r.Config.ResponseSchema = format.typed
			if format.typed == nil {
				r.Config.ResponseJsonSchema = format.raw
			}
		}
	})
}

type responseSchema struct {
	typed *genai.Schema
	raw   map[string]any
}

// decodeConfig maps snake_case invocation parameters onto GenerateContentConfig.
// Keys without a config field are ignored, and so are values of the wrong type:
// every key follows the ExtractModelConfig rule, so it never fails.
func decodeConfig(params map[string]any, r *Request) error {
	cfg := &genai.GenerateContentConfig{}
	mp := adapter.ExtractModelConfig(params)
	if mp.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*mp.Temperature))
	}
	if mp.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*mp.TopP))
	}
	if mp.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*mp.TopK))
	}
	if mp.MaxTokens != nil {
		cfg.MaxOutputTokens = clampInt32(*mp.MaxTokens)
	}
	if n, ok := cast.ToInt32(params["max_output_tokens"]); ok && mp.MaxTokens == nil {
		cfg.MaxOutputTokens = n
	}
	if mp.Seed != nil {
		cfg.Seed = genai.Ptr(clampInt32(*mp.Seed))
	}
	if mp.PresencePenalty != nil {
		cfg.PresencePenalty = genai.Ptr(float32(*mp.PresencePenalty))
	}
	if mp.FrequencyPenalty != nil {
		cfg.FrequencyPenalty = genai.Ptr(float32(*mp.FrequencyPenalty))
	}
	cfg.StopSequences = mp.Stop
	if n, ok := cast.ToInt32(params["candidate_count"]); ok {
		cfg.CandidateCount = n
	}
	r.Config = cfg
	return nil
}

func clampInt32(n int64) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int32(n)
}

func systemParts(m promptsdk.PromptMessage) ([]*genai.Part, error) {
	var out []*genai.Part
	for _, p := range m.Content {
		tp, ok := p.(promptsdk.TextPart)
		if !ok {
			return nil, fmt.Errorf("%w: %T in %s message", adapter.ErrUnsupportedContent, p, m.Role)
		}
		if tp.Text != "" {
			out = append(out, genai.NewPartFromText(tp.Text))
		}
	}
	return out, nil
}

func content(m promptsdk.PromptMessage) (*genai.Content, error) {
	var role genai.Role
	switch m.Role {
	case promptsdk.RoleUser, promptsdk.RoleTool:
		role = genai.RoleUser
	case promptsdk.RoleAssistant:
		role = genai.RoleModel
	default:
		return nil, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, m.Role)
	}
	parts := make([]*genai.Part, 0, len(m.Content))
	for _, p := range m.Content {
		part, err := contentPart(m.Role, p)
		if err != nil {
			return nil, err
		}
		if part != nil {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s message has no content", adapter.ErrUnsupportedContent, m.Role)
	}
	return genai.NewContentFromParts(parts, role), nil
}

// contentPart maps one part for role. Empty text yields a nil part.
func contentPart(role promptsdk.Role, p promptsdk.ContentPart) (*genai.Part, error) {
	switch x := p.(type) {
	case promptsdk.TextPart:
		if role == promptsdk.RoleTool {
			break
		}
		if x.Text == "" {
			return nil, nil
		}
		return genai.NewPartFromText(x.Text), nil
	case promptsdk.ImagePart:
		if role != promptsdk.RoleUser {
			break
		}
		return imagePart(x)
	case promptsdk.ToolCallPart:
		if role != promptsdk.RoleAssistant {
			break
		}
		args, err := adapter.ToolCallArguments(x)
		if err != nil {
			return nil, err
		}
		part := genai.NewPartFromFunctionCall(x.Name, args)
		part.FunctionCall.ID = x.ToolCallID
		return part, nil
	case promptsdk.ToolResultPart:
		if role != promptsdk.RoleTool && role != promptsdk.RoleUser {
			break
		}
		return functionResponse(x)
	}
	return nil, fmt.Errorf("%w: %T in %s message", adapter.ErrUnsupportedContent, p, role)
}

// functionResponse wraps the result under "result", or "error" when IsError is set.
// Gemini matches responses to calls by function name, so Name is required.
func functionResponse(p promptsdk.ToolResultPart) (*genai.Part, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: tool result %q has no function name", adapter.ErrUnsupportedContent, p.ToolCallID)
	}
	key := "result"
	if p.IsError {
		key = "error"
	}
	var value any
	if obj, ok := p.Result.(map[string]any); ok {
		value = obj
	} else {
		text, err := adapter.ToolResultText(p)
		if err != nil {
			return nil, err
		}
		value = text
	}
	part := genai.NewPartFromFunctionResponse(p.Name, map[string]any{key: value})
	part.FunctionResponse.ID = p.ToolCallID
	return part, nil
}

func imagePart(p promptsdk.ImagePart) (*genai.Part, error) {
	switch {
	case media.IsDataURI(p.URL):
		inline, err := media.DecodeImage(p.URL, p.MIMEType, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", adapter.ErrUnsupportedContent, err)
		}
		return genai.NewPartFromBytes(inline.Data, inline.MIMEType), nil
	case media.IsRemote(p.URL):
		mime := p.MIMEType
		if mime == "" {
			mime = DefaultImageMIME
		}
		return genai.NewPartFromURI(p.URL, mime), nil
	default:
		return nil, fmt.Errorf("%w: image URL %q", adapter.ErrUnsupportedContent, p.URL)
	}
}

func functionDeclaration(t promptsdk.ToolDefinition) (*genai.FunctionDeclaration, error) {
	params, err := adapter.FunctionParameters(t)
	if err != nil {
		return nil, err
	}
	decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
	typed, raw := schemaFor(params)
	if typed != nil {
		decl.Parameters = typed
	} else {
		decl.ParametersJsonSchema = raw
	}
	return decl, nil
}

func functionCallingConfig(tc adapter.ToolChoice) (*genai.FunctionCallingConfig, error) {
	switch tc.Mode {
	case adapter.ToolChoiceModeNone:
		return &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone}, nil
	case adapter.ToolChoiceModeAuto:
		return &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto}, nil
	case adapter.ToolChoiceModeRequired:
		return &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny}, nil
	case adapter.ToolChoiceModeFunction:
		return &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingConfigModeAny,
			AllowedFunctionNames: []string{tc.Function},
		}, nil
	default:
		return nil, fmt.Errorf("unknown tool choice mode %q", tc.Mode)
	}
}

// Compile-time check that Converter implements adapter.Converter.
var _ adapter.Converter[Request] = (*Converter)(nil)
