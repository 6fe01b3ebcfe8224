package gemini

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"google.golang.org/genai"

	"github.com/skosovsky/promptsdk/internal/cast"
)

// errNoTypedSchema reports a JSON Schema keyword genai.Schema cannot express.
var errNoTypedSchema = errors.New("schema keyword has no typed genai equivalent")

// schemaFor returns a typed genai.Schema when every keyword maps onto it; otherwise typed is nil
// and raw carries a copy of the JSON Schema for the *JsonSchema request fields.
func schemaFor(m map[string]any) (typed *genai.Schema, raw map[string]any) {
	s, err := mapToGenaiSchema(m)
	if err != nil {
		return nil, maps.Clone(m)
	}
	return s, nil
}

// mapToGenaiSchema converts a JSON Schema (map[string]any) to genai.Schema.
// Recursive for properties, items and anyOf. Unknown keywords yield errNoTypedSchema.
func mapToGenaiSchema(m map[string]any) (*genai.Schema, error) {
	if m == nil {
		return nil, nil
	}
	s := &genai.Schema{}
	for key, v := range m {
		var err error
		switch key {
		case "type":
			err = setType(s, v)
		case "properties":
			err = setProperties(s, v)
		case "required":
			req, ok := cast.ToStringSlice(v)
			if !ok {
				return nil, fmt.Errorf("required: %w", errNoTypedSchema)
			}
			s.Required = req
		case "propertyOrdering":
			order, ok := cast.ToStringSlice(v)
			if !ok {
				return nil, fmt.Errorf("propertyOrdering: %w", errNoTypedSchema)
			}
			s.PropertyOrdering = order
		case "items":
			sub, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("items: %w", errNoTypedSchema)
			}
			s.Items, err = mapToGenaiSchema(sub)
		case "anyOf":
			err = setAnyOf(s, v)
		case "enum":
			enum, ok := cast.ToStringSlice(v)
			if !ok {
				return nil, fmt.Errorf("enum: %w", errNoTypedSchema)
			}
			s.Enum = enum
		case "description", "title", "format", "pattern":
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %w", key, errNoTypedSchema)
			}
			setString(s, key, str)
		case "nullable":
			b, ok := cast.ToBool(v)
			if !ok {
				return nil, fmt.Errorf("nullable: %w", errNoTypedSchema)
			}
			s.Nullable = &b
		case "minimum", "maximum":
			f, ok := cast.ToFloat64(v)
			if !ok {
				return nil, fmt.Errorf("%s: %w", key, errNoTypedSchema)
			}
			if key == "minimum" {
				s.Minimum = &f
			} else {
				s.Maximum = &f
			}
		case "minItems", "maxItems", "minLength", "maxLength", "minProperties", "maxProperties":
			n, ok := cast.ToInt64(v)
			if !ok {
				return nil, fmt.Errorf("%s: %w", key, errNoTypedSchema)
			}
			setBound(s, key, n)
		case "default":
			s.Default = v
		case "example":
			s.Example = v
		case "$schema":
			// informational only
		default:
			return nil, fmt.Errorf("%q: %w", key, errNoTypedSchema)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	return s, nil
}

// setType handles both "type": "string" and "type": ["string", "null"].
func setType(s *genai.Schema, v any) error {
	if t, ok := v.(string); ok {
		gt, ok := jsonSchemaTypeToGenai(t)
		if !ok {
			return errNoTypedSchema
		}
		s.Type = gt
		return nil
	}
	types, ok := cast.ToStringSlice(v)
	if !ok {
		return errNoTypedSchema
	}
	nullable := slices.Contains(types, "null")
	types = slices.DeleteFunc(types, func(t string) bool { return t == "null" })
	if len(types) != 1 {
		return errNoTypedSchema
	}
	gt, ok := jsonSchemaTypeToGenai(types[0])
	if !ok {
		return errNoTypedSchema
	}
	s.Type = gt
	if nullable {
		s.Nullable = genai.Ptr(true)
	}
	return nil
}

func setProperties(s *genai.Schema, v any) error {
	props, ok := v.(map[string]any)
	if !ok {
		return errNoTypedSchema
	}
	s.Properties = make(map[string]*genai.Schema, len(props))
	for name, raw := range props {
		sub, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("property %q: %w", name, errNoTypedSchema)
		}
		conv, err := mapToGenaiSchema(sub)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		s.Properties[name] = conv
	}
	return nil
}

func setAnyOf(s *genai.Schema, v any) error {
	list, ok := v.([]any)
	if !ok {
		return errNoTypedSchema
	}
	for i, raw := range list {
		sub, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("[%d]: %w", i, errNoTypedSchema)
		}
		conv, err := mapToGenaiSchema(sub)
		if err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		s.AnyOf = append(s.AnyOf, conv)
	}
	return nil
}

func setString(s *genai.Schema, key, v string) {
	switch key {
	case "description":
		s.Description = v
	case "title":
		s.Title = v
	case "format":
		s.Format = v
	case "pattern":
		s.Pattern = v
	}
}

func setBound(s *genai.Schema, key string, n int64) {
	switch key {
	case "minItems":
		s.MinItems = &n
	case "maxItems":
		s.MaxItems = &n
	case "minLength":
		s.MinLength = &n
	case "maxLength":
		s.MaxLength = &n
	case "minProperties":
		s.MinProperties = &n
	case "maxProperties":
		s.MaxProperties = &n
	}
}

func jsonSchemaTypeToGenai(t string) (genai.Type, bool) {
	switch t {
	case "string":
		return genai.TypeString, true
	case "number":
		return genai.TypeNumber, true
	case "integer":
		return genai.TypeInteger, true
	case "boolean":
		return genai.TypeBoolean, true
	case "array":
		return genai.TypeArray, true
	case "object":
		return genai.TypeObject, true
	default:
		return genai.TypeUnspecified, false
	}
}
