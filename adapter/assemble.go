package adapter

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/skosovsky/promptsdk"
)

// structuralKeys are owned by the mapped fields; invocation parameters never set them.
var structuralKeys = []string{"model", "messages", "tools", "tool_choice", "response_format"}

// StructuralKeys returns the invocation parameter keys Assemble always drops.
func StructuralKeys() []string { return slices.Clone(structuralKeys) }

// Decoder fills dst from the non-structural invocation parameters.
type Decoder[P any] func(params map[string]any, dst *P) error

// DecodeJSON is the default Decoder: a JSON round-trip into P, which uses P's own UnmarshalJSON when present.
func DecodeJSON[P any](params map[string]any, dst *P) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Assemble builds provider parameters. Invocation parameters are decoded first with the
// lowest precedence (structural keys and extraDrop keys removed), then apply writes the mapped
// fields, which always win. invocation is not modified.
func Assemble[P any](invocation map[string]any, decode Decoder[P], apply func(*P), extraDrop ...string) (*P, error) {
	params := new(P)
	rest := make(map[string]any, len(invocation))
	for k, v := range invocation {
		if slices.Contains(structuralKeys, k) || slices.Contains(extraDrop, k) {
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		if decode == nil {
			decode = DecodeJSON[P]
		}
		if err := decode(rest, params); err != nil {
			return nil, promptsdk.NewStageError(promptsdk.StageAssemble,
				fmt.Errorf("%w: invocation parameters: %w", promptsdk.ErrSchemaValidation, err))
		}
	}
	if apply != nil {
		apply(params)
	}
	return params, nil
}
