package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skosovsky/promptsdk/internal/codegen"
)

func newGenCmd(a *app) *cobra.Command {
	var (
		tag      string
		pkg      string
		typeName string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "gen <prompt-name|record-file>",
		Short: "Generate a typed Go struct for a prompt's variables",
		Example: `  promptconv gen weather --package prompts --out prompts/weather_vars.go
  //go:generate promptconv gen ../prompts/weather.yaml --package prompts --out weather_vars.go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, prompt, err := a.promptVariables(cmd, args[0], tag)
			if err != nil {
				return err
			}
			promptName := prompt.Name
			if promptName == "" {
				promptName = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			src, err := codegen.Generate(codegen.Options{
				Package:    pkg,
				PromptName: promptName,
				TypeName:   typeName,
				Variables:  names,
			})
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			return os.WriteFile(out, src, 0o644) // #nosec G306 -- generated source is not secret
		},
	}
	f := cmd.Flags()
	f.StringVarP(&tag, "tag", "t", "", "prompt tag (default DEFAULT_TAG)")
	f.StringVar(&pkg, "package", "prompts", "package name of the generated file")
	f.StringVar(&typeName, "type", "", "struct name (default <PromptName>Vars)")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
