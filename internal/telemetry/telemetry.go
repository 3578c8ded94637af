// Package telemetry builds the zap logger the rest of the simulator logs
// through, and gates per-component tracing to the configured debug cycle
// window. Grounded on octoreflex/cmd/octoreflex/main.go's buildLogger and
// startup logging pattern (other_examples), adapted for a deterministic
// per-cycle simulator rather than a long-running agent.
package telemetry

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Hong-git007/scarab-guell/internal/config"
)

// Build constructs a zap.Logger at the configured level. When
// cfg.OutputDir is set, log records are additionally written to a file
// under that directory, mirroring the original's OUTPUT_DIR sink
// (SPEC_FULL.md §B).
func Build(cfg *config.Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "telemetry: invalid log level %q", cfg.LogLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stderr), level),
	}

	if cfg.OutputDir != "" {
		sink, err := fileSink(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// Cycle returns a logger that only emits at Warn-or-above when cycle
// falls outside cfg.Debug's window, so call sites can unconditionally log
// at Debug/Info without branching on the window themselves (spec.md §6's
// DEBUG_CYCLE_START/DEBUG_CYCLE_STOP).
func Cycle(log *zap.Logger, cfg *config.Config, cycle uint64) *zap.Logger {
	if !cfg.Debug.Active(cycle) {
		return log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	}
	return log
}

func fileSink(dir string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "telemetry: cannot create output dir %q", dir)
	}
	path := filepath.Join(dir, "h2psim.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "telemetry: cannot open log file %q", path)
	}
	return zapcore.AddSync(f), nil
}
