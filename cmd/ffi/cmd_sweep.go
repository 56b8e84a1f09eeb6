package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ludo67100/MFDeltaLat/internal/config"
	"github.com/ludo67100/MFDeltaLat/internal/ledger"
	"github.com/ludo67100/MFDeltaLat/internal/logging"
	"github.com/ludo67100/MFDeltaLat/internal/runner"
	"github.com/ludo67100/MFDeltaLat/internal/simulator"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Simulate every parameter combination",
		Long: `Simulate the feedforward inhibition network once per combination of
stimulus frequency, E/I delay, pulse count and synaptic parameters.

Combinations whose spike file already exists in the trace directory are
skipped, so an interrupted sweep resumes where it stopped. When
sweep.ledger is set, completions are also recorded in that SQLite file.

Examples:
  ffi sweep                  # Single-case sweep from the config
  ffi sweep --full           # Published grid (3,725,568 runs)
  ffi sweep --dry-run        # Write PyNEST scripts without running them`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			full, _ := cmd.Flags().GetBool("full")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if full {
				cfg.Sweep.UseFullGrid()
			}
			if dryRun {
				cfg.Simulator.Backend = "script"
			}

			space, err := cfg.Sweep.Space()
			if err != nil {
				return fmt.Errorf("building sweep: %w", err)
			}

			logger := newLogger(cmd, cfg)
			events, err := logging.OpenSweepLog(cfg.Sweep.TraceDir, cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() {
				if err := events.Close(); err != nil {
					logger.Warn("event log incomplete", "path", events.Path(), "error", err)
				}
			}()

			r := &runner.Runner{
				Kernel:   newKernel(cfg, logger),
				Params:   cfg.Sweep.Params,
				TraceDir: cfg.Sweep.TraceDir,
				Seed:     cfg.Sweep.Seed,
				Logger:   logger,
				Events:   events,
			}
			// Written scripts are not completed runs.
			if cfg.Sweep.Ledger != "" && cfg.Simulator.Backend != "script" {
				db, err := ledger.NewSQLiteLedger(cfg.Sweep.Ledger)
				if err != nil {
					return fmt.Errorf("opening ledger: %w", err)
				}
				defer db.Close()
				r.Ledger = ledger.Chain{db, r.ArtifactLedger()}
			}

			summary, runErr := r.Run(cmd.Context(), space)

			if jsonOut {
				out := map[string]any{
					"sweep_id": summary.SweepID,
					"total":    summary.Total,
					"skipped":  summary.Skipped,
					"ran":      summary.Ran,
				}
				if runErr != nil {
					out["error"] = runErr.Error()
				}
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Sweep %s: %d combinations, %d ran, %d skipped\n",
					summary.SweepID, summary.Total, summary.Ran, summary.Skipped)
			}
			return runErr
		},
	}

	cmd.Flags().Bool("full", false, "Use the published full parameter grid")
	cmd.Flags().Bool("dry-run", false, "Write simulator scripts instead of running NEST")

	return cmd
}

func newKernel(cfg *config.Config, logger *slog.Logger) simulator.Kernel {
	if cfg.Simulator.Backend == "script" {
		dir := cfg.Simulator.ScriptDir
		if dir == "" {
			dir = filepath.Join(cfg.Sweep.TraceDir, "scripts")
		}
		return &simulator.ScriptKernel{Dir: dir, DataPath: cfg.Sweep.TraceDir, Seed: cfg.Sweep.Seed}
	}
	return &simulator.NESTKernel{
		Python:   cfg.Simulator.Python,
		DataPath: cfg.Sweep.TraceDir,
		Seed:     cfg.Sweep.Seed,
		Timeout:  cfg.Simulator.Timeout,
		Logger:   logger,
	}
}
