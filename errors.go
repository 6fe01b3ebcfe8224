package promptsdk

import (
	"errors"
	"fmt"
)

// Sentinel errors for conversion and registry operations.
// All use prefix "promptsdk:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrUnsupportedTemplate       = errors.New("promptsdk: template kind is not a chat message list")
	ErrUnsupportedTemplateFormat = errors.New("promptsdk: unknown template format")
	ErrSchemaValidation          = errors.New("promptsdk: value does not match the provider schema")
	ErrToolNotConvertible        = errors.New("promptsdk: tool cannot be represented for this provider")
	ErrToolChoiceMissingTool     = errors.New("promptsdk: tool choice names a tool that is not in the tool list")
	ErrInvalidRecord             = errors.New("promptsdk: prompt record is malformed")
	ErrPromptNotFound            = errors.New("promptsdk: prompt not found in registry")
	ErrInvalidName               = errors.New("promptsdk: invalid prompt name or tag")
)

// Stage names the conversion step that failed.
type Stage string

// Conversion stages in pipeline order.
const (
	StageTemplate       Stage = "template"
	StageFormat         Stage = "format"
	StageMessages       Stage = "messages"
	StageTools          Stage = "tools"
	StageToolChoice     Stage = "tool_choice"
	StageResponseFormat Stage = "response_format"
	StageAssemble       Stage = "assemble"
)

// StageError wraps a conversion failure with the stage and, for list stages, the item index.
// Use errors.Is(err, ErrSchemaValidation) and errors.As(err, &stageErr) to inspect.
type StageError struct {
	Stage Stage
	Index int // -1 when the stage is not per-item
	Err   error
}

// Error implements error.
func (e *StageError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("promptsdk: %s[%d]: %v", e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("promptsdk: %s: %v", e.Stage, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *StageError) Unwrap() error { return e.Err }

// NewStageError returns a *StageError for a whole-stage failure.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Index: -1, Err: err}
}

// StageOf reports the stage recorded in err's chain, or "" when there is none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Compile-time check that StageError implements error.
var _ error = (*StageError)(nil)
