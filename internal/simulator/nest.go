package simulator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ludo67100/MFDeltaLat/internal/logging"
	"github.com/ludo67100/MFDeltaLat/internal/network"
)

// NESTKernel runs networks with NEST through a generated PyNEST script.
// The Python process is the simulator's lifetime: it starts from
// nest.ResetKernel() and its state is gone when it exits.
type NESTKernel struct {
	// Python is the interpreter with the nest module installed.
	Python string
	// DataPath is where NEST writes trace files. It is created if missing.
	DataPath string
	// Seed seeds NEST's noise generators; 0 keeps NEST's default.
	Seed uint64
	// Timeout bounds a single run; 0 means no limit.
	Timeout time.Duration

	Logger *slog.Logger
}

// Open creates a scratch directory holding the session's script.
func (k *NESTKernel) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dataPath, err := filepath.Abs(k.DataPath)
	if err != nil {
		return nil, fmt.Errorf("resolving data path: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data path: %w", err)
	}
	scratch, err := os.MkdirTemp("", "ffi-nest-*")
	if err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}

	logger := k.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	python := k.Python
	if python == "" {
		python = "python3"
	}

	return &nestSession{
		python:  python,
		scratch: scratch,
		opts:    ScriptOptions{DataPath: dataPath, Seed: k.Seed},
		timeout: k.Timeout,
		logger:  logger,
	}, nil
}

type nestSession struct {
	state   sessionState
	python  string
	scratch string
	opts    ScriptOptions
	timeout time.Duration
	logger  *slog.Logger
}

func (s *nestSession) Run(ctx context.Context, n *network.Network) error {
	if err := s.state.begin(); err != nil {
		return err
	}

	script, err := Script(n, s.opts)
	if err != nil {
		return fmt.Errorf("rendering script for %s: %w", n.Label, err)
	}
	path := filepath.Join(s.scratch, "run.py")
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	s.logger.Log(ctx, logging.LevelTrace, "nest script", "label", n.Label, "script", script)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.python, path)
	cmd.Dir = s.opts.DataPath
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("nest run %s: %w", n.Label, ctxErr)
		}
		return fmt.Errorf("nest run %s: %w: %s", n.Label, err, lastLines(stderr.String(), 5))
	}
	s.logger.Debug("nest run finished", "label", n.Label, "elapsed", time.Since(start))
	return nil
}

func (s *nestSession) Close() error {
	if !s.state.close() {
		return nil
	}
	if err := os.RemoveAll(s.scratch); err != nil {
		return fmt.Errorf("removing session dir: %w", err)
	}
	return nil
}

// lastLines keeps the tail of a Python traceback for error messages.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// ScriptKernel writes each session's PyNEST script to Dir without running
// it. The scripts can be run later, e.g. one process per combination on a
// cluster.
type ScriptKernel struct {
	Dir      string
	DataPath string
	Seed     uint64
}

func (k *ScriptKernel) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(k.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating script dir: %w", err)
	}
	return &scriptSession{dir: k.Dir, opts: ScriptOptions{DataPath: k.DataPath, Seed: k.Seed}}, nil
}

type scriptSession struct {
	state sessionState
	dir   string
	opts  ScriptOptions
}

func (s *scriptSession) Run(ctx context.Context, n *network.Network) error {
	if err := s.state.begin(); err != nil {
		return err
	}
	f, err := os.Create(ScriptPath(s.dir, n.Label))
	if err != nil {
		return fmt.Errorf("creating script: %w", err)
	}
	if err := RenderScript(f, n, s.opts); err != nil {
		f.Close()
		return fmt.Errorf("rendering script for %s: %w", n.Label, err)
	}
	return f.Close()
}

func (s *scriptSession) Close() error {
	s.state.close()
	return nil
}

// ScriptPath is where ScriptKernel writes the script for label.
func ScriptPath(dir, label string) string {
	return filepath.Join(dir, label+".py")
}
