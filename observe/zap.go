package observe

import (
	"context"

	"go.uber.org/zap"
)

// zapLogger adapts a *zap.Logger to Logger for applications that already
// route their logs through zap.
type zapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps z. Redacted field keys are masked before they reach zap.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger()
	}
	return &zapLogger{z: z}
}

// NewProductionZap builds a JSON zap logger at the given level.
func NewProductionZap(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	return cfg.Build()
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(zapFields(fields)...)}
}

func (l *zapLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.z.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.z.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.z.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(_ context.Context, msg string, fields ...Field) {
	l.z.Error(msg, zapFields(fields)...)
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, redact(f)))
	}
	return out
}

var _ Logger = (*zapLogger)(nil)
