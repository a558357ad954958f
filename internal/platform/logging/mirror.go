package logging

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MirrorFunc receives a copy of every emitted record. Used to forward logs
// to an OTLP exporter without coupling this package to the SDK.
type MirrorFunc func(ctx context.Context, level Level, msg string, fields []zap.Field)

var mirror atomic.Pointer[MirrorFunc]

func SetMirror(fn MirrorFunc) {
	if fn == nil {
		mirror.Store(nil)
		return
	}
	mirror.Store(&fn)
}

func mirrorRecord(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	fn := mirror.Load()
	if fn == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	(*fn)(ctx, level, msg, fields)
}
