package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skosovsky/promptsdk"
)

func newVarsCmd(a *app) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "vars <prompt-name|record-file>",
		Short: "List the template variables of a prompt, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, _, err := a.promptVariables(cmd, args[0], tag)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "prompt tag (default DEFAULT_TAG)")
	return cmd
}

func (a *app) promptVariables(cmd *cobra.Command, ref, tag string) ([]string, *promptsdk.PromptVersion, error) {
	prompt, err := a.loadPrompt(cmd.Context(), ref, tag)
	if err != nil {
		return nil, nil, err
	}
	msgs, ok := prompt.Messages()
	if !ok {
		return nil, nil, promptsdk.ErrUnsupportedTemplate
	}
	names, err := promptsdk.ExtractVariables(prompt.TemplateFormat, msgs)
	if err != nil {
		return nil, nil, err
	}
	return names, prompt, nil
}
