// Command h2psim drives the hard-to-predict branch analysis core against a
// synthetic instruction stream generated per core by internal/frontend,
// retiring every op through internal/core.Manager and cycling BWE and the
// periodic cache maintenance sweep on the schedule spec.md §6 names.
// Grounded on octoreflex/cmd/octoreflex/main.go's load-config / build-logger
// / run-loop / graceful-shutdown shape (other_examples); flags use pflag
// rather than flag since this stack pulls in github.com/spf13/pflag for its
// GNU-style long-flag parsing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Hong-git007/scarab-guell/internal/config"
	"github.com/Hong-git007/scarab-guell/internal/core"
	"github.com/Hong-git007/scarab-guell/internal/frontend"
	"github.com/Hong-git007/scarab-guell/internal/tage"
	"github.com/Hong-git007/scarab-guell/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "h2psim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.String("config", "", "path to YAML configuration file (required)")
	programPath := pflag.String("program", "", "path to a raw little-endian binary of 16-bit instruction words (required)")
	cycles := pflag.Uint64("cycles", 1_000_000, "number of retirement steps to simulate per core")
	memBytes := pflag.Uint64("mem-bytes", 1<<20, "flat memory size given to each core's frontend")
	pflag.Parse()

	if *configPath == "" {
		return errors.New("--config is required")
	}
	if *programPath == "" {
		return errors.New("--program is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := telemetry.Build(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	program, err := loadProgramWords(*programPath)
	if err != nil {
		return err
	}

	mgr, err := core.New(core.Config{
		NumCores:    cfg.NumCores,
		RRBSize:     cfg.RRBSize,
		WalkLatency: cfg.WalkLatency,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	engines := make([]*frontend.Engine, cfg.NumCores)
	for i := range engines {
		// Each core gets its own predictor instance: spec.md §5's disjoint
		// per-core state extends to the frontend's branch history too.
		e := frontend.New(*memBytes, tage.New(), uint8(i))
		e.LoadProgram(0, program)
		engines[i] = e
	}

	log.Info("simulation starting",
		zap.Int("num_cores", cfg.NumCores),
		zap.Uint64("cycles", *cycles),
		zap.Int("maintenance_period", cfg.MaintenancePeriod))

	retiredTotal := simulate(ctx, log, cfg, mgr, engines, *cycles)

	log.Info("simulation complete", zap.Uint64("ops_retired", retiredTotal))
	return nil
}

// simulate runs each core's frontend for up to cycles steps, retiring
// every produced op into the core manager and triggering BWE cycling and
// periodic cache maintenance on the configured schedule (spec.md §6).
func simulate(ctx context.Context, log *zap.Logger, cfg *config.Config, mgr *core.Manager, engines []*frontend.Engine, cycles uint64) uint64 {
	var retiredTotal uint64

	for cycle := uint64(0); cycle < cycles; cycle++ {
		select {
		case <-ctx.Done():
			return retiredTotal
		default:
		}

		cycleLog := telemetry.Cycle(log, cfg, cycle)

		for coreID, e := range engines {
			retired, ok := e.Step()
			if !ok {
				continue
			}
			if err := mgr.Retire(coreID, retired); err != nil {
				cycleLog.Warn("retire failed", zap.Int("core", coreID), zap.Error(err))
				continue
			}
			retiredTotal++
			if retired.IsHard {
				cycleLog.Debug("hard-to-predict branch retired",
					zap.Int("core", coreID),
					zap.Uint64("pc", retired.PC),
					zap.Bool("mispredicted", retired.Mispredicted))
			}
			if err := mgr.CycleBWE(coreID); err != nil {
				cycleLog.Warn("cycle_bwe failed", zap.Int("core", coreID), zap.Error(err))
			}
		}

		if cfg.MaintenancePeriod > 0 && cycle > 0 && cycle%uint64(cfg.MaintenancePeriod) == 0 {
			for coreID := range engines {
				if err := mgr.PeriodicallyResetCaches(coreID); err != nil {
					cycleLog.Warn("periodic maintenance failed", zap.Int("core", coreID), zap.Error(err))
				}
			}
		}
	}
	return retiredTotal
}

// loadProgramWords reads a raw binary file and unpacks it into little-endian
// 16-bit instruction words for frontend.Engine.LoadProgram.
func loadProgramWords(path string) ([]uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading program %q", path)
	}
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
	}
	return words, nil
}
