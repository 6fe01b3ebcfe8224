package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skosovsky/promptsdk/internal/config"
	"github.com/skosovsky/promptsdk/internal/logging"
)

// app carries state shared by subcommands after PersistentPreRunE.
type app struct {
	envFile  string
	dir      string
	logLevel string

	cfg       *config.Config
	log       *logrus.Logger
	slog      *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "promptconv",
		Short: "Convert stored prompts into LLM provider request parameters",
		Long: `promptconv loads provider-agnostic prompt records (YAML or JSON) from a
directory, an HTTP registry or a Git repository and converts them into the
request parameters of OpenAI, Azure OpenAI, Anthropic, Gemini or Ollama.

Sources and logging are configured through the environment (see .env):
PROMPTS_DIR, PROMPTS_REMOTE_URL, PROMPTS_GIT_URL, DEFAULT_TAG, LOG_LEVEL, ...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	pf.StringVar(&a.dir, "dir", "", "prompt directory (overrides PROMPTS_DIR)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newConvertCmd(a),
		newVarsCmd(a),
		newGenCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.dir != "" {
		cfg.PromptsDir = a.dir
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	l, closer, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	a.cfg = cfg
	a.log = l
	a.logCloser = closer
	a.slog = logging.NewSlog(l)
	return nil
}
