package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// Handler is a slog.Handler that writes records to a logrus logger.
// Groups become dotted field prefixes.
type Handler struct {
	logger *logrus.Logger
	attrs  []slog.Attr
	group  string
}

// NewHandler returns a Handler writing to l.
func NewHandler(l *logrus.Logger) *Handler {
	return &Handler{logger: l}
}

// NewSlog returns a *slog.Logger backed by l.
func NewSlog(l *logrus.Logger) *slog.Logger {
	return slog.New(NewHandler(l))
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.IsLevelEnabled(toLogrus(level))
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(logrus.Fields, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addField(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(fields, h.group, a)
		return true
	})
	entry := h.logger.WithContext(ctx).WithFields(fields)
	if !r.Time.IsZero() {
		entry = entry.WithTime(r.Time)
	}
	entry.Log(toLogrus(r.Level), r.Message)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		out.attrs = append(out.attrs, slog.Attr{Key: prefixed(h.group, a.Key), Value: a.Value})
	}
	return &out
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.group = prefixed(h.group, name)
	return &out
}

func addField(fields logrus.Fields, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefixed(group, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addField(fields, key, ga)
		}
		return
	}
	if err, ok := a.Value.Any().(error); ok {
		fields[key] = err.Error()
		return
	}
	fields[key] = a.Value.Any()
}

func prefixed(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return strings.Join([]string{group, key}, ".")
	}
}

func toLogrus(l slog.Level) logrus.Level {
	switch {
	case l >= slog.LevelError:
		return logrus.ErrorLevel
	case l >= slog.LevelWarn:
		return logrus.WarnLevel
	case l >= slog.LevelInfo:
		return logrus.InfoLevel
	case l >= slog.LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

var _ slog.Handler = (*Handler)(nil)
