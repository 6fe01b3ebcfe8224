package convert

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/adapter/gemini"
	"github.com/skosovsky/promptsdk/internal/logtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func greeting(provider promptsdk.ModelProvider) *promptsdk.PromptVersion {
	return &promptsdk.PromptVersion{
		ID:             "pv-c",
		ModelProvider:  provider,
		ModelName:      "model-x",
		TemplateFormat: promptsdk.TemplateFormatMustache,
		Template: &promptsdk.ChatTemplate{Messages: []promptsdk.PromptMessage{
			{Role: promptsdk.RoleUser, Content: []promptsdk.ContentPart{promptsdk.TextPart{Text: "Hi {{ name }}"}}},
		}},
	}
}

func ExampleToParams() {
	prompt := greeting(promptsdk.ProviderOpenAI)
	params := ToParams("", prompt, promptsdk.Variables{"name": "Ada"}).(*openaisdk.ChatCompletionNewParams)
	fmt.Println(params.Model, params.Messages[0].OfUser.Content.OfString.Value)
	// Output: model-x Hi Ada
}

func TestParseProvider(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want promptsdk.ModelProvider
	}{
		{"OPENAI", promptsdk.ProviderOpenAI},
		{"openai", promptsdk.ProviderOpenAI},
		{"azure-openai", promptsdk.ProviderAzureOpenAI},
		{"azure", promptsdk.ProviderAzureOpenAI},
		{" Anthropic ", promptsdk.ProviderAnthropic},
		{"gemini", promptsdk.ProviderGoogle},
		{"GOOGLE", promptsdk.ProviderGoogle},
		{"ollama", promptsdk.ProviderOllama},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseProvider(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := ParseProvider("mistral")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestProviders(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []promptsdk.ModelProvider{
		promptsdk.ProviderAnthropic,
		promptsdk.ProviderAzureOpenAI,
		promptsdk.ProviderGoogle,
		promptsdk.ProviderOllama,
		promptsdk.ProviderOpenAI,
	}, Providers())
}

func TestForProvider_Types(t *testing.T) {
	t.Parallel()
	for _, provider := range Providers() {
		t.Run(string(provider), func(t *testing.T) {
			t.Parallel()
			c, err := ForProvider(provider)
			require.NoError(t, err)
			assert.Equal(t, provider, c.Provider())
			out, err := c.Convert(greeting(provider), promptsdk.Variables{"name": "Ada"})
			require.NoError(t, err)
			switch p := out.(type) {
			case *openaisdk.ChatCompletionNewParams:
				assert.Equal(t, "model-x", p.Model)
			case *anthropicsdk.MessageNewParams:
				assert.Equal(t, "model-x", string(p.Model))
			case *gemini.Request:
				assert.Equal(t, "model-x", p.Model)
			case *api.ChatRequest:
				assert.Equal(t, "model-x", p.Model)
				assert.Equal(t, "Hi Ada", p.Messages[0].Content)
			default:
				t.Fatalf("unexpected params type %T", out)
			}
		})
	}
}

func TestForProvider_Unknown(t *testing.T) {
	t.Parallel()
	_, err := ForProvider("MISTRAL")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestToParams_ExplicitProviderWins(t *testing.T) {
	t.Parallel()
	out := ToParams(promptsdk.ProviderOllama, greeting(promptsdk.ProviderOpenAI), nil)
	req, ok := out.(*api.ChatRequest)
	require.True(t, ok)
	assert.Equal(t, "Hi {{ name }}", req.Messages[0].Content, "nil variables leave the template untouched")
}

func TestToParams_FailuresAreUntypedNil(t *testing.T) {
	t.Parallel()
	logger, rec := logtest.New()

	bad := greeting(promptsdk.ProviderAnthropic)
	bad.Template.(*promptsdk.ChatTemplate).Messages[0].Role = "narrator"
	out := ToParams("", bad, nil, WithLogger(logger))
	assert.Nil(t, out)
	assert.True(t, out == nil, "no typed nil pointer inside the interface")

	out = ToParams("", greeting("MISTRAL"), nil, WithLogger(logger))
	assert.True(t, out == nil)

	warns := rec.AtLevel(slog.LevelWarn)
	require.Len(t, warns, 2)
	assert.Equal(t, "anthropic", warns[0].Attrs["provider"])
	assert.Equal(t, "MISTRAL", warns[1].Attrs["provider"])

	assert.Nil(t, ToParams(promptsdk.ProviderOpenAI, nil, nil))
}

func TestToParams_StringTemplateIsNotLogged(t *testing.T) {
	t.Parallel()
	logger, rec := logtest.New()
	p := greeting(promptsdk.ProviderOpenAI)
	p.Template = &promptsdk.StringTemplate{Template: "Hi {name}"}
	assert.True(t, ToParams("", p, nil, WithLogger(logger)) == nil)
	assert.Empty(t, rec.AtLevel(slog.LevelWarn))
}

func TestToParams_ConcurrentSharedLogger(t *testing.T) {
	t.Parallel()
	logger, rec := logtest.New()
	providers := Providers()
	const rounds = 25

	var wg sync.WaitGroup
	for i := range rounds {
		for _, provider := range providers {
			wg.Add(2)
			go func() {
				defer wg.Done()
				ok := greeting(provider)
				assert.NotNil(t, ToParams(provider, ok, promptsdk.Variables{"name": "Ada"}, WithLogger(logger)))
			}()
			go func() {
				defer wg.Done()
				bad := greeting(provider)
				bad.ID = fmt.Sprintf("%s-%d", provider, i)
				bad.Template.(*promptsdk.ChatTemplate).Messages[0].Role = "narrator"
				assert.Nil(t, ToParams(provider, bad, nil, WithLogger(logger)))
			}()
		}
	}
	wg.Wait()

	warns := rec.AtLevel(slog.LevelWarn)
	require.Len(t, warns, rounds*len(providers), "one warning per failed conversion")
	seen := make(map[string]int)
	for _, w := range warns {
		assert.Equal(t, "failed to convert prompt to provider params", w.Message)
		assert.NotEmpty(t, w.Attrs["provider"])
		seen[w.Attrs["prompt"]]++
	}
	for i := range rounds {
		for _, provider := range providers {
			assert.Equal(t, 1, seen[fmt.Sprintf("%s-%d", provider, i)])
		}
	}
	assert.Len(t, rec.Records(), rounds*len(providers), "successful conversions log nothing")
}
