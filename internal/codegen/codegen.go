// Package codegen renders a typed variables struct for a prompt's placeholders,
// so callers bind template variables through compile-checked fields instead of
// a string-keyed map.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"strconv"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
)

const sdkPath = "github.com/skosovsky/promptsdk"

// Options describes one generated file.
type Options struct {
	Package    string   // Go package name of the generated file
	PromptName string   // used for the type name and doc comment
	TypeName   string   // optional; defaults to <PromptName>Vars
	Variables  []string // placeholder names in template order
}

// Generate renders the Go source of the variables struct and its Variables method.
func Generate(opts Options) ([]byte, error) {
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("codegen: invalid package name %q", opts.Package)
	}
	typeName := opts.TypeName
	if typeName == "" {
		typeName = ExportName(opts.PromptName) + "Vars"
	}
	if !token.IsIdentifier(typeName) || !token.IsExported(typeName) {
		return nil, fmt.Errorf("codegen: invalid type name %q", typeName)
	}
	if len(opts.Variables) == 0 {
		return nil, errors.New("codegen: prompt has no variables")
	}

	f := jen.NewFile(opts.Package)
	f.HeaderComment("Code generated by promptconv gen. DO NOT EDIT.")

	used := map[string]int{}
	fields := make([]jen.Code, 0, len(opts.Variables))
	dict := jen.Dict{}
	for _, v := range opts.Variables {
		name := ExportName(v)
		if n := used[name]; n > 0 {
			used[name]++
			name += strconv.Itoa(n + 1)
		} else {
			used[name] = 1
		}
		fields = append(fields, jen.Id(name).String().Tag(map[string]string{"prompt": v}))
		dict[jen.Lit(v)] = jen.Id("v").Dot(name)
	}

	f.Commentf("%s holds the template variables of prompt %q.", typeName, opts.PromptName)
	f.Type().Id(typeName).Struct(fields...)
	f.Line()
	f.Comment("Variables returns the bindings for promptsdk conversion.")
	f.Func().Params(jen.Id("v").Id(typeName)).Id("Variables").Params().Qual(sdkPath, "Variables").Block(
		jen.Return(jen.Qual(sdkPath, "Variables").Values(dict)),
	)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("codegen: render: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportName turns a placeholder or prompt name into an exported Go identifier:
// "user_name" -> "UserName", "order.id" -> "OrderID", "2fa" -> "V2fa".
func ExportName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, p := range parts {
		if up := strings.ToUpper(p); initialisms[up] {
			b.WriteString(up)
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	out := b.String()
	if out == "" {
		return "Var"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "V" + out
	}
	return out
}

var initialisms = map[string]bool{
	"ID": true, "URL": true, "API": true, "JSON": true, "HTTP": true, "UI": true, "SQL": true,
}
