package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/convert"
)

// errUnusable mirrors the nil result of a conversion.
var errUnusable = errors.New("prompt cannot be used with this provider")

func newConvertCmd(a *app) *cobra.Command {
	var (
		provider string
		tag      string
		vars     []string
		varsFile string
		compact  bool
	)
	cmd := &cobra.Command{
		Use:   "convert <prompt-name|record-file>",
		Short: "Print the provider request parameters for a prompt as JSON",
		Long: `Convert a prompt into provider request parameters.

The prompt is read from the given file when it ends in .yaml, .yml or .json
and exists, otherwise it is looked up by name in the configured registry.
Without --var or --vars-file the templates are left uninterpolated (preview).
--provider defaults to the record's model provider.`,
		Example: `  promptconv convert weather --provider anthropic --var city=Oslo
  promptconv convert ./prompts/weather.yaml --vars-file vars.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := parseVariables(vars, varsFile)
			if err != nil {
				return err
			}
			prompt, err := a.loadPrompt(cmd.Context(), args[0], tag)
			if err != nil {
				return err
			}
			var target promptsdk.ModelProvider
			if provider != "" {
				if target, err = convert.ParseProvider(provider); err != nil {
					return err
				}
			}
			params := convert.ToParams(target, prompt, bindings, convert.WithLogger(a.slog))
			if params == nil {
				return errUnusable
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(params)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&provider, "provider", "p", "", "target provider: openai, azure_openai, anthropic, gemini, ollama")
	f.StringVarP(&tag, "tag", "t", "", "prompt tag (default DEFAULT_TAG)")
	f.StringArrayVar(&vars, "var", nil, "variable binding key=value (repeatable)")
	f.StringVar(&varsFile, "vars-file", "", "YAML or JSON file with variable bindings")
	f.BoolVar(&compact, "compact", false, "print single-line JSON")
	return cmd
}

// parseVariables merges the vars file with key=value pairs; pairs win. Returns nil when
// neither is given so the conversion previews the raw templates.
func parseVariables(pairs []string, file string) (promptsdk.Variables, error) {
	if len(pairs) == 0 && file == "" {
		return nil, nil
	}
	out := promptsdk.Variables{}
	if file != "" {
		data, err := os.ReadFile(file) // #nosec G304 -- path supplied by the CLI user
		if err != nil {
			return nil, fmt.Errorf("vars file: %w", err)
		}
		var m map[string]any
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("vars file %s: %w", file, err)
		}
		for k, v := range m {
			out[k] = v
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
