// Package logging constructs the process-wide zap logger. It is the one
// legitimately ambient resource named by spec.md §9 — every other component
// is instantiated once in main() and handed its dependencies explicitly.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kaspa-ng/dnsseeder/internal/netparams"
)

var global = zap.NewNop()

// New builds a *zap.Logger for the given log_level string
// (trace/debug/info/warn/error). "trace" maps to zap's Debug level, since
// zap has no lower level. In a devseeder build the encoder is a readable
// console encoder; otherwise JSON, matching zap's own Config split.
func New(level string) (*zap.Logger, error) {
	zl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if netparams.DevMode {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(os.Stdout)), zl)
	logger := zap.New(core)
	global = logger
	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q: want trace, debug, info, warn, or error", level)
	}
}

// Log returns the process-wide logger for the rare leaf helper that cannot
// be handed one explicitly (e.g. sanitation rejecting an address deep in a
// hot path shared by several components). Prefer explicit injection
// everywhere else.
func Log() *zap.Logger {
	return global
}
