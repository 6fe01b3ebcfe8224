package promptsdk

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Formatter interpolates variables into one template text.
// Placeholders whose name is not bound are left exactly as written.
type Formatter interface {
	Format(text string, vars Variables) string
	// Variables returns placeholder names in first-appearance order, without duplicates.
	Variables(text string) []string
}

// placeholder is one span text[start:end] that the formatter rewrites. A span with a
// name is a variable reference; a span without one is an escape sequence replaced by literal.
type placeholder struct {
	start, end int
	name       string
	literal    string
}

// placeholderFormatter implements Formatter on top of a syntax-specific scanner.
type placeholderFormatter struct {
	find func(text string) []placeholder
}

// Format substitutes bound placeholders and unescapes escape sequences in one pass.
// Text without placeholders or escapes is returned unchanged.
func (f placeholderFormatter) Format(text string, vars Variables) string {
	found := f.find(text)
	if len(found) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, ph := range found {
		b.WriteString(text[last:ph.start])
		switch v, ok := vars[ph.name]; {
		case ph.name == "":
			b.WriteString(ph.literal)
		case ok:
			b.WriteString(renderValue(v))
		default:
			b.WriteString(text[ph.start:ph.end])
		}
		last = ph.end
	}
	b.WriteString(text[last:])
	return b.String()
}

func (f placeholderFormatter) Variables(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ph := range f.find(text) {
		if ph.name != "" && !seen[ph.name] {
			seen[ph.name] = true
			out = append(out, ph.name)
		}
	}
	return out
}

// noneFormatter has no placeholder syntax.
type noneFormatter struct{}

func (noneFormatter) Format(text string, _ Variables) string { return text }
func (noneFormatter) Variables(string) []string              { return nil }

// mustachePattern matches {{ name }} at the start of its input.
var mustachePattern = regexp.MustCompile(`^\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`)

// findMustache finds {{ name }} references. \{{ is an escape for a literal {{.
func findMustache(text string) []placeholder {
	var out []placeholder
	for i := 0; i < len(text); i++ {
		switch {
		case strings.HasPrefix(text[i:], `\{{`):
			out = append(out, placeholder{start: i, end: i + 1})
			i += 2
		case strings.HasPrefix(text[i:], "{{"):
			m := mustachePattern.FindStringSubmatchIndex(text[i:])
			if m == nil {
				continue
			}
			out = append(out, placeholder{start: i, end: i + m[1], name: text[i+m[2] : i+m[3]]})
			i += m[1] - 1
		}
	}
	return out
}

// findFString finds {name} references. {{ and }} are escapes for a literal { and }.
func findFString(text string) []placeholder {
	var out []placeholder
	for i := 0; i < len(text); i++ {
		switch {
		case strings.HasPrefix(text[i:], "{{"):
			out = append(out, placeholder{start: i, end: i + 2, literal: "{"})
			i++
		case strings.HasPrefix(text[i:], "}}"):
			out = append(out, placeholder{start: i, end: i + 2, literal: "}"})
			i++
		case text[i] == '{':
			end := i + 1
			for end < len(text) && isIdentByte(text[end], end == i+1) {
				end++
			}
			if end == i+1 || end >= len(text) || text[end] != '}' {
				continue
			}
			out = append(out, placeholder{start: i, end: end + 1, name: text[i+1 : end]})
			i = end
		}
	}
	return out
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}

var formatters = map[TemplateFormat]Formatter{
	TemplateFormatMustache: placeholderFormatter{find: findMustache},
	TemplateFormatFString:  placeholderFormatter{find: findFString},
	TemplateFormatNone:     noneFormatter{},
	"":                     noneFormatter{},
}

// FormatterFor returns the formatter for format, or ErrUnsupportedTemplateFormat.
func FormatterFor(format TemplateFormat) (Formatter, error) {
	f, ok := formatters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTemplateFormat, format)
	}
	return f, nil
}

// FormatMessages interpolates vars into the text parts of messages using the given format.
// It always returns new slices; messages is not modified. When vars is nil no substitution is
// performed (preview mode). Unbound placeholders are left literal.
func FormatMessages(format TemplateFormat, messages []PromptMessage, vars Variables) ([]PromptMessage, error) {
	f, err := FormatterFor(format)
	if err != nil {
		return nil, err
	}
	out := cloneMessages(messages)
	if vars == nil {
		return out, nil
	}
	for i := range out {
		for j, part := range out[i].Content {
			if tp, ok := part.(TextPart); ok {
				out[i].Content[j] = TextPart{Text: f.Format(tp.Text, vars)}
			}
		}
	}
	return out, nil
}

// ExtractVariables lists placeholder names across all text parts in first-appearance order.
func ExtractVariables(format TemplateFormat, messages []PromptMessage) ([]string, error) {
	f, err := FormatterFor(format)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range messages {
		for _, part := range m.Content {
			tp, ok := part.(TextPart)
			if !ok {
				continue
			}
			for _, name := range f.Variables(tp.Text) {
				if !seen[name] {
					seen[name] = true
					out = append(out, name)
				}
			}
		}
	}
	return out, nil
}

// renderValue converts a bound value to its substitution text.
// Strings and scalars render as-is; composite values render as JSON.
func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
