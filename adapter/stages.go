package adapter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/skosovsky/promptsdk"
)

// PrepareMessages checks that prompt carries a chat template and formats its messages with vars.
// A non-chat template yields promptsdk.ErrUnsupportedTemplate.
func PrepareMessages(prompt *promptsdk.PromptVersion, vars promptsdk.Variables) ([]promptsdk.PromptMessage, error) {
	msgs, ok := prompt.Messages()
	if !ok {
		return nil, promptsdk.NewStageError(promptsdk.StageTemplate, promptsdk.ErrUnsupportedTemplate)
	}
	out, err := promptsdk.FormatMessages(prompt.TemplateFormat, msgs, vars)
	if err != nil {
		return nil, promptsdk.NewStageError(promptsdk.StageFormat, err)
	}
	return out, nil
}

// MapMessages applies fn to each message in order. The first failure aborts with a
// *promptsdk.StageError carrying the message index. A mapper may return SkipMessage()
// to leave a message out of the result.
func MapMessages[M any](msgs []promptsdk.PromptMessage, fn func(promptsdk.PromptMessage) (M, error)) ([]M, error) {
	out := make([]M, 0, len(msgs))
	for i, m := range msgs {
		v, err := fn(m)
		if errors.Is(err, errSkipMessage) {
			continue
		}
		if err != nil {
			return nil, &promptsdk.StageError{Stage: promptsdk.StageMessages, Index: i, Err: asSchemaError(err)}
		}
		out = append(out, v)
	}
	return out, nil
}

// MapTools applies fn to each tool definition. Tools whose mapping fails with
// promptsdk.ErrToolNotConvertible are dropped; any other failure aborts.
// It returns nil when no tool survives, together with the names of the surviving tools.
func MapTools[T any](tools *promptsdk.Tools, fn func(promptsdk.ToolDefinition) (T, error)) ([]T, []string, error) {
	if tools == nil || len(tools.Tools) == 0 {
		return nil, nil, nil
	}
	var (
		out  []T
		kept []string
	)
	for i, t := range tools.Tools {
		v, err := fn(t)
		if errors.Is(err, promptsdk.ErrToolNotConvertible) {
			continue
		}
		if err != nil {
			return nil, nil, &promptsdk.StageError{Stage: promptsdk.StageTools, Index: i, Err: asSchemaError(err)}
		}
		out = append(out, v)
		kept = append(kept, t.Name)
	}
	return out, kept, nil
}

// ToolChoiceMode is the provider-neutral tool choice vocabulary.
type ToolChoiceMode string

// Neutral tool choice modes.
const (
	ToolChoiceModeNone     ToolChoiceMode = "none"
	ToolChoiceModeAuto     ToolChoiceMode = "auto"
	ToolChoiceModeRequired ToolChoiceMode = "required"
	ToolChoiceModeFunction ToolChoiceMode = "function"
)

// ToolChoice is a normalized tool choice directive. Function is set only for ToolChoiceModeFunction.
type ToolChoice struct {
	Mode     ToolChoiceMode
	Function string
}

// NormalizeToolChoice maps the prompt-level directive to the neutral vocabulary.
func NormalizeToolChoice(tc promptsdk.ToolChoice) (ToolChoice, error) {
	switch tc.Type {
	case promptsdk.ToolChoiceNone:
		return ToolChoice{Mode: ToolChoiceModeNone}, nil
	case promptsdk.ToolChoiceZeroOrMore:
		return ToolChoice{Mode: ToolChoiceModeAuto}, nil
	case promptsdk.ToolChoiceOneOrMore:
		return ToolChoice{Mode: ToolChoiceModeRequired}, nil
	case promptsdk.ToolChoiceSpecificFunction:
		if tc.FunctionName == "" {
			return ToolChoice{}, fmt.Errorf("%w: specific_function tool choice without function name", promptsdk.ErrSchemaValidation)
		}
		return ToolChoice{Mode: ToolChoiceModeFunction, Function: tc.FunctionName}, nil
	default:
		return ToolChoice{}, fmt.Errorf("%w: unknown tool choice type %q", promptsdk.ErrSchemaValidation, tc.Type)
	}
}

// MapToolChoice renders the tool choice directive with fn. It returns nil when no tool survived
// mapping (kept is empty) or the prompt has no directive. A function directive naming a tool
// outside kept fails with promptsdk.ErrToolChoiceMissingTool.
func MapToolChoice[C any](tools *promptsdk.Tools, kept []string, fn func(ToolChoice) (C, error)) (*C, error) {
	if len(kept) == 0 || tools == nil || tools.ToolChoice == nil {
		return nil, nil
	}
	norm, err := NormalizeToolChoice(*tools.ToolChoice)
	if err != nil {
		return nil, promptsdk.NewStageError(promptsdk.StageToolChoice, err)
	}
	if norm.Mode == ToolChoiceModeFunction && !slices.Contains(kept, norm.Function) {
		return nil, promptsdk.NewStageError(promptsdk.StageToolChoice,
			fmt.Errorf("%w: %q", promptsdk.ErrToolChoiceMissingTool, norm.Function))
	}
	c, err := fn(norm)
	if err != nil {
		return nil, promptsdk.NewStageError(promptsdk.StageToolChoice, asSchemaError(err))
	}
	return &c, nil
}

// MapResponseFormat validates the response format schema with ValidateSchema and renders it with fn.
// It returns nil when rf is nil.
func MapResponseFormat[R any](rf *promptsdk.ResponseFormat, fn func(promptsdk.ResponseFormat) (R, error)) (*R, error) {
	if rf == nil {
		return nil, nil
	}
	if err := ValidateSchema(rf.Schema); err != nil {
		return nil, promptsdk.NewStageError(promptsdk.StageResponseFormat, err)
	}
	r, err := fn(*rf)
	if err != nil {
		return nil, promptsdk.NewStageError(promptsdk.StageResponseFormat, asSchemaError(err))
	}
	return &r, nil
}

// asSchemaError makes sure a mapper failure is reported as a schema validation error.
func asSchemaError(err error) error {
	if errors.Is(err, promptsdk.ErrSchemaValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", promptsdk.ErrSchemaValidation, err)
}
