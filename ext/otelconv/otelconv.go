package otelconv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/adapter"
	"github.com/skosovsky/promptsdk/convert"
)

// ScopeName is the instrumentation scope used when no tracer is configured.
const ScopeName = "github.com/skosovsky/promptsdk/ext/otelconv"

// SpanName is the name of every conversion span.
const SpanName = "promptsdk.convert"

// Span attribute keys.
const (
	AttrProvider       = attribute.Key("promptsdk.provider")
	AttrPrompt         = attribute.Key("promptsdk.prompt")
	AttrModel          = attribute.Key("promptsdk.model")
	AttrTemplateFormat = attribute.Key("promptsdk.template_format")
	AttrStage          = attribute.Key("promptsdk.stage")
	AttrSkipped        = attribute.Key("promptsdk.skipped")
)

// Converter decorates a convert.Converter with tracing.
type Converter struct {
	next   convert.Converter
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithTracerProvider sets the provider the tracer is taken from. Default is otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Converter) {
		if tp != nil {
			c.tracer = tp.Tracer(ScopeName)
		}
	}
}

// WithLogger sets the logger for ToParams failures. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// Wrap returns a tracing Converter around next.
func Wrap(next convert.Converter, opts ...Option) *Converter {
	c := &Converter{next: next}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(ScopeName)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Provider returns the wrapped converter's provider.
func (c *Converter) Provider() promptsdk.ModelProvider { return c.next.Provider() }

// Convert runs the wrapped conversion inside a span.
func (c *Converter) Convert(ctx context.Context, prompt *promptsdk.PromptVersion, vars promptsdk.Variables) (out any, err error) {
	_, span := c.tracer.Start(ctx, SpanName, trace.WithAttributes(c.attributes(prompt)...))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic during conversion: %v", r)
		}
		record(span, err)
	}()
	if prompt == nil {
		return nil, fmt.Errorf("%w: nil prompt", promptsdk.ErrInvalidRecord)
	}
	return c.next.Convert(prompt, vars)
}

// ToParams is the fail-closed form of Convert: nil on failure with one log record.
func (c *Converter) ToParams(ctx context.Context, prompt *promptsdk.PromptVersion, vars promptsdk.Variables) any {
	if prompt == nil {
		return nil
	}
	out, err := c.Convert(ctx, prompt, vars)
	if err != nil {
		adapter.ReportFailure(c.logger, c.providerName(), prompt, err)
		return nil
	}
	return out
}

func (c *Converter) providerName() string {
	return strings.ToLower(string(c.next.Provider()))
}

func (c *Converter) attributes(prompt *promptsdk.PromptVersion) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrProvider.String(c.providerName())}
	if prompt == nil {
		return attrs
	}
	attrs = append(attrs, AttrPrompt.String(prompt.Label()), AttrModel.String(prompt.ModelName))
	if prompt.TemplateFormat != "" {
		attrs = append(attrs, AttrTemplateFormat.String(string(prompt.TemplateFormat)))
	}
	return attrs
}

// record sets the span outcome. Unsupported template kinds are expected and not errors.
func record(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, promptsdk.ErrUnsupportedTemplate):
		span.SetAttributes(AttrSkipped.Bool(true))
	default:
		if stage := promptsdk.StageOf(err); stage != "" {
			span.SetAttributes(AttrStage.String(string(stage)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt cannot be used with this provider")
	}
}
