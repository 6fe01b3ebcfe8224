package promptsdk

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// recordValidator is safe for concurrent use; it only caches struct metadata.
var recordValidator = validator.New(validator.WithRequiredStructEnabled())

// namePattern restricts prompt names and tags to path-safe identifiers.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateRecord checks the structural rules of a prompt record: a model name and a template are
// present, every message has a role, tool names are set and unique, a specific_function tool choice
// carries a function name, and a response format is named.
// The returned error wraps ErrInvalidRecord.
func ValidateRecord(p *PromptVersion) error {
	if p == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if err := recordValidator.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if p.Tools != nil {
		seen := make(map[string]bool, len(p.Tools.Tools))
		for i, t := range p.Tools.Tools {
			if seen[t.Name] {
				return fmt.Errorf("%w: tools[%d]: duplicate tool name %q", ErrInvalidRecord, i, t.Name)
			}
			seen[t.Name] = true
		}
		if tc := p.Tools.ToolChoice; tc != nil {
			if err := recordValidator.Struct(tc); err != nil {
				return fmt.Errorf("%w: tool_choice: %w", ErrInvalidRecord, err)
			}
		}
	}
	if p.ResponseFormat != nil {
		if err := recordValidator.Struct(p.ResponseFormat); err != nil {
			return fmt.Errorf("%w: response_format: %w", ErrInvalidRecord, err)
		}
	}
	return nil
}

// ValidateName returns ErrInvalidName when name or tag cannot be used as a registry key.
// An empty tag is allowed and means the registry default.
func ValidateName(name, tag string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: name %q", ErrInvalidName, name)
	}
	if tag != "" && !namePattern.MatchString(tag) {
		return fmt.Errorf("%w: tag %q", ErrInvalidName, tag)
	}
	return nil
}
