// Package runner drives a parameter sweep through a simulator kernel,
// skipping combinations that a ledger reports as already done.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ludo67100/MFDeltaLat/internal/ledger"
	"github.com/ludo67100/MFDeltaLat/internal/logging"
	"github.com/ludo67100/MFDeltaLat/internal/network"
	"github.com/ludo67100/MFDeltaLat/internal/simulator"
	"github.com/ludo67100/MFDeltaLat/internal/sweep"
)

// Summary reports what a sweep did.
type Summary struct {
	SweepID string `json:"sweep_id"`
	Total   int    `json:"total"`
	Skipped int    `json:"skipped"`
	Ran     int    `json:"ran"`
}

// sweepRecorder is implemented by ledgers that keep per-sweep metadata.
type sweepRecorder interface {
	BeginSweep(ctx context.Context, id string, combinations int) error
}

// Runner simulates every combination of a space in order.
type Runner struct {
	Kernel simulator.Kernel
	// Ledger decides which combinations are skipped. When nil the runner
	// falls back to checking for the spike artifact in TraceDir.
	Ledger ledger.Ledger
	Params network.Params

	// TraceDir is where the simulator writes its artifacts.
	TraceDir string
	// Seed feeds the initial membrane potentials; each combination draws
	// from its own stream so results don't depend on skipped runs.
	Seed uint64

	Logger *slog.Logger
	Events *logging.SweepLog
}

// ArtifactPath is the spike file a combination produces in traceDir.
func ArtifactPath(traceDir, label string, trials int) string {
	return filepath.Join(traceDir, network.SpikeFileName(label, trials))
}

// ArtifactLedger returns the file-existence ledger for r's trace dir.
func (r *Runner) ArtifactLedger() ledger.ArtifactLedger {
	return ledger.ArtifactLedger{Path: func(key string) string {
		return ArtifactPath(r.TraceDir, key, r.Params.Trials)
	}}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.Discard()
	}
	return r.Logger
}

// Run walks the space and stops at the first failed combination.
func (r *Runner) Run(ctx context.Context, space *sweep.Space) (Summary, error) {
	if r.Kernel == nil {
		return Summary{}, fmt.Errorf("runner has no simulator kernel")
	}
	if err := r.Params.Validate(); err != nil {
		return Summary{}, fmt.Errorf("invalid network parameters: %w", err)
	}

	led := r.Ledger
	if led == nil {
		led = r.ArtifactLedger()
	}

	sum := Summary{SweepID: uuid.NewString(), Total: space.Len()}
	log := r.logger().With("sweep", sum.SweepID)

	if sr, ok := led.(sweepRecorder); ok {
		if err := sr.BeginSweep(ctx, sum.SweepID, sum.Total); err != nil {
			return sum, err
		}
	}
	log.Info("sweep started", "combinations", sum.Total, "trace_dir", r.TraceDir)

	for i, c := range space.All() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		key := c.Key()
		done, err := led.Completed(ctx, key)
		if err != nil {
			return sum, fmt.Errorf("checking ledger for %s: %w", key, err)
		}
		if done {
			sum.Skipped++
			log.Debug("skipping completed combination", "index", i, "label", key)
			r.Events.Write(logging.Event{Kind: logging.EventSkip, Sweep: sum.SweepID, Index: i, Label: key})
			continue
		}

		if err := r.runOne(ctx, sum.SweepID, i, c); err != nil {
			r.Events.Write(logging.Event{Kind: logging.EventFail, Sweep: sum.SweepID, Index: i, Label: key, Error: err.Error()})
			return sum, fmt.Errorf("combination %d (%s): %w", i, key, err)
		}
		sum.Ran++

		entry := ledger.Entry{
			Key:         key,
			Artifact:    ArtifactPath(r.TraceDir, key, r.Params.Trials),
			SweepID:     sum.SweepID,
			CompletedAt: time.Now(),
		}
		if err := led.Record(ctx, entry); err != nil {
			return sum, fmt.Errorf("recording %s: %w", key, err)
		}
		r.Events.Write(logging.Event{Kind: logging.EventDone, Sweep: sum.SweepID, Index: i, Label: key})
	}

	log.Info("sweep finished", "ran", sum.Ran, "skipped", sum.Skipped)
	return sum, nil
}

func (r *Runner) runOne(ctx context.Context, sweepID string, i int, c sweep.Combination) error {
	start := time.Now()
	err := simulator.With(ctx, r.Kernel, func(s simulator.Session) error {
		n, err := network.Build(c, r.Params, rand.NewPCG(r.Seed, uint64(i)))
		if err != nil {
			return err
		}
		r.Events.Write(logging.Event{
			Kind:       logging.EventRun,
			Sweep:      sweepID,
			Index:      i,
			Label:      n.Label,
			DurationMs: n.Duration,
			Exc:        n.ExcTrain,
			Inh:        n.InhTrain,
		})
		return s.Run(ctx, n)
	})
	if err != nil {
		return err
	}
	r.logger().Info("simulated", "index", i, "label", c.Label(), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
