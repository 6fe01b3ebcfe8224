package codegen

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExportName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"user_name":     "UserName",
		"order.id":      "OrderID",
		"api-url":       "APIURL",
		"2fa":           "V2fa",
		"city":          "City",
		"__":            "Var",
		"support_agent": "SupportAgent",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExportName(in), in)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	src, err := Generate(Options{
		Package:    "prompts",
		PromptName: "weather",
		Variables:  []string{"city", "user_name", "user-name"},
	})
	require.NoError(t, err)
	code := string(src)

	assert.Contains(t, code, "// Code generated by promptconv gen. DO NOT EDIT.")
	assert.Contains(t, code, "package prompts")
	assert.Contains(t, code, `"github.com/skosovsky/promptsdk"`)
	assert.Contains(t, code, "type WeatherVars struct")
	assert.Contains(t, code, "City      string `prompt:\"city\"`")
	assert.Contains(t, code, "UserName2 string `prompt:\"user-name\"`")
	assert.Contains(t, code, "func (v WeatherVars) Variables() promptsdk.Variables")
	assert.Contains(t, code, `"user_name": v.UserName`)

	_, err = parser.ParseFile(token.NewFileSet(), "weather_vars.go", src, parser.AllErrors)
	require.NoError(t, err)
}

func TestGenerate_CustomTypeName(t *testing.T) {
	t.Parallel()
	src, err := Generate(Options{Package: "p", PromptName: "x", TypeName: "Bindings", Variables: []string{"a"}})
	require.NoError(t, err)
	assert.Contains(t, string(src), "type Bindings struct")
}

func TestGenerate_Invalid(t *testing.T) {
	t.Parallel()
	tests := map[string]Options{
		"bad package":     {Package: "my-pkg", PromptName: "x", Variables: []string{"a"}},
		"unexported type": {Package: "p", TypeName: "vars", Variables: []string{"a"}},
		"no variables":    {Package: "p", PromptName: "x"},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Generate(opts)
			require.Error(t, err)
		})
	}
}
