package adapter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/skosovsky/promptsdk"
)

// SafeConvert runs convert and contains every failure: on error or panic it logs one warning
// and returns nil. A prompt whose template is not a chat template returns nil with a debug
// record only. A nil prompt returns nil without logging. A nil logger uses slog.Default().
func SafeConvert[P any](
	logger *slog.Logger,
	provider string,
	prompt *promptsdk.PromptVersion,
	convert func(*promptsdk.PromptVersion) (*P, error),
) (out *P) {
	if prompt == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			logFailure(logger, provider, prompt, fmt.Errorf("panic during conversion: %v", r))
		}
	}()
	params, err := convert(prompt)
	if err != nil {
		ReportFailure(logger, provider, prompt, err)
		return nil
	}
	return params
}

// ReportFailure logs a conversion error the way SafeConvert does: unsupported template kinds
// at debug level, everything else as one warning carrying provider, prompt, stage and err.
func ReportFailure(logger *slog.Logger, provider string, prompt *promptsdk.PromptVersion, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if errors.Is(err, promptsdk.ErrUnsupportedTemplate) {
		logger.Debug("prompt template is not a chat template, skipping conversion",
			"provider", provider, "prompt", prompt.Label())
		return
	}
	logFailure(logger, provider, prompt, err)
}

func logFailure(logger *slog.Logger, provider string, prompt *promptsdk.PromptVersion, err error) {
	stage := promptsdk.StageOf(err)
	if stage == "" {
		stage = "unknown"
	}
	logger.Warn("failed to convert prompt to provider params",
		"provider", provider,
		"prompt", prompt.Label(),
		"stage", string(stage),
		"err", err,
	)
}
