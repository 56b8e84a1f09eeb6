package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/ludo67100/MFDeltaLat/internal/config"
	"github.com/ludo67100/MFDeltaLat/internal/ledger"
	"github.com/ludo67100/MFDeltaLat/internal/simulator"
)

// newTestRootCmd creates a root command with persistent flags for testing subcommands
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ffi",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level")
	return rootCmd
}

// isolateHome sets HOME to a temp directory to avoid touching real ~/.ffi/
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
}

// writeConfig writes a config that keeps every path inside tmpDir.
func writeConfig(t *testing.T, tmpDir, extra string) string {
	t.Helper()
	content := fmt.Sprintf(`data_dir: %[1]s/data
output_dir: %[1]s/out
sweep:
  trace_dir: %[1]s/traces
  trials: 3
figures:
  format: png
%[2]s`, tmpDir, extra)
	path := filepath.Join(tmpDir, "ffi.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func run(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(sub)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{sub.Name()}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	want := []string{"version", "config", "sweep", "ledger", "latency", "compare", "regress", "proportions"}
	rootCmd := newRootCmd()
	for _, name := range want {
		if c, _, err := rootCmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, c, err)
		}
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := run(t, newVersionCmd(), "--json")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestConfigList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := run(t, newConfigCmd(), "list")
	if err != nil {
		t.Fatalf("config list error = %v", err)
	}
	for _, want := range []string{"Sweep:", "combinations:    1", "backend:           nest", "alpha:             0.05"} {
		if !strings.Contains(out, want) {
			t.Errorf("config list output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, newConfigCmd(), "list", "--json", "--log-level", "debug")
	if err != nil {
		t.Fatalf("config list --json error = %v", err)
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug from --log-level", cfg.Logging.Level)
	}
}

func TestConfigList_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfig(t, tmpDir, "simulator:\n  backend: brian\n")
	if _, err := run(t, newConfigCmd(), "list", "--config", path); err == nil {
		t.Error("config list with bad backend: error = nil")
	}
}

func TestConfigInit(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := run(t, newConfigCmd(), "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	path := filepath.Join(tmpDir, "home", ".ffi", "config.yaml")
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Sweep.Trials != config.Default().Sweep.Trials {
		t.Errorf("trials = %d, want default", cfg.Sweep.Trials)
	}

	if _, err := run(t, newConfigCmd(), "init"); err == nil {
		t.Error("second config init without --force: error = nil")
	}
	if _, err := run(t, newConfigCmd(), "init", "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
}

func TestSweepCmd_DryRunWritesScripts(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	path := writeConfig(t, tmpDir, "")

	out, err := run(t, newSweepCmd(), "--dry-run", "--json", "--config", path)
	if err != nil {
		t.Fatalf("sweep --dry-run error = %v", err)
	}
	var got struct {
		Total, Ran, Skipped int
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Total != 1 || got.Ran != 1 || got.Skipped != 0 {
		t.Errorf("summary = %+v, want 1 combination run", got)
	}

	cfg, _ := config.LoadFromFile(path)
	space, _ := cfg.Sweep.Space()
	script := simulator.ScriptPath(filepath.Join(tmpDir, "traces", "scripts"), space.At(0).Label())
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("script not written: %v", err)
	}
	if !strings.Contains(string(data), "nest") {
		t.Errorf("script %s does not drive NEST", script)
	}
}

func TestSweepCmd_CancelledContext(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	path := writeConfig(t, tmpDir, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"sweep", "--dry-run", "--config", path})
	if err := rootCmd.ExecuteContext(ctx); err == nil {
		t.Error("sweep with cancelled context: error = nil")
	}
}

func TestSweepCmd_FullGridCountInHelp(t *testing.T) {
	cfg := config.Default()
	cfg.Sweep.UseFullGrid()
	space, err := cfg.Sweep.Space()
	if err != nil {
		t.Fatalf("Space() error = %v", err)
	}
	if got, want := space.Len(), 3725568; got != want {
		t.Fatalf("full grid Len() = %d, want %d", got, want)
	}
	if long := newSweepCmd().Long; !strings.Contains(long, "3,725,568 runs") {
		t.Errorf("sweep help does not state the full grid size:\n%s", long)
	}
}

func TestLedgerList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	dbPath := filepath.Join(tmpDir, "runs.db")
	path := writeConfig(t, tmpDir, "")
	// The ledger lives under sweep, so append it there.
	content, _ := os.ReadFile(path)
	content = bytes.Replace(content, []byte("  trials: 3\n"), []byte("  trials: 3\n  ledger: "+dbPath+"\n"), 1)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	db, err := ledger.NewSQLiteLedger(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteLedger() error = %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"a", "b"} {
		e := ledger.Entry{Key: key, Artifact: key + ".gdf", SweepID: "s1", CompletedAt: time.Now()}
		if err := db.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	out, err := run(t, newLedgerCmd(), "list", "--json", "--config", path)
	if err != nil {
		t.Fatalf("ledger list error = %v", err)
	}
	var got struct {
		Count   int            `json:"count"`
		Entries []ledger.Entry `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Count != 2 {
		t.Errorf("count = %d, want 2", got.Count)
	}

	if _, err := run(t, newLedgerCmd(), "forget", "a", "--config", path); err != nil {
		t.Fatalf("ledger forget error = %v", err)
	}
	out, err = run(t, newLedgerCmd(), "list", "--config", path)
	if err != nil {
		t.Fatalf("ledger list error = %v", err)
	}
	if strings.Contains(out, "  a\n") || !strings.Contains(out, "1 completed runs") {
		t.Errorf("ledger list after forget:\n%s", out)
	}
}

func TestLedgerList_NotConfigured(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	if _, err := run(t, newLedgerCmd(), "list"); err == nil {
		t.Error("ledger list without sweep.ledger: error = nil")
	}
}

func TestProportionsCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	path := writeConfig(t, tmpDir, "")

	out, err := run(t, newProportionsCmd(), "--config", path, "--surface", "1,1,1,1")
	if err != nil {
		t.Fatalf("proportions error = %v", err)
	}
	if !strings.Contains(out, "25.0%") {
		t.Errorf("surface override not applied:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "out", "Fig2G.png")); err != nil {
		t.Errorf("figure not written: %v", err)
	}

	if _, err := run(t, newProportionsCmd(), "--config", path, "--single", "1,2"); err == nil {
		t.Error("proportions with mismatched counts: error = nil")
	}
}

// writeWorkbook saves one sheet with an index column.
func writeWorkbook(t *testing.T, path string, header []string, rows [][]float64) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	head := []any{""}
	for _, h := range header {
		head = append(head, h)
	}
	if err := f.SetSheetRow("Sheet1", "A1", &head); err != nil {
		t.Fatal(err)
	}
	for i, r := range rows {
		row := []any{i}
		for _, v := range r {
			row = append(row, v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func writeProtocols(t *testing.T, tmpDir string) {
	t.Helper()
	header := []string{"EPSQ_pC", "IPSQ_pC", "Group"}
	for name, scale := range map[string]float64{
		config.Default().Figures.Single:  1,
		config.Default().Figures.Surface: 1.7,
	} {
		var rows [][]float64
		for i := 0; i < 10; i++ {
			x := float64(i+1) * scale
			rows = append(rows, []float64{-x, 1.8*x + float64(i%3)*0.4, float64(i % 2)})
		}
		writeWorkbook(t, filepath.Join(tmpDir, "data", name), header, rows)
	}
}

func TestCompareCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	path := writeConfig(t, tmpDir, "")
	writeProtocols(t, tmpDir)

	out, err := run(t, newCompareCmd(), "--config", path, "--json")
	if err != nil {
		t.Fatalf("compare error = %v", err)
	}
	var got struct {
		Figure   string `json:"figure"`
		Features []struct {
			Feature string  `json:"feature"`
			Test    string  `json:"test"`
			P       float64 `json:"p"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got.Features) != 3 || got.Features[0].Feature != "EPSQ_pC" {
		t.Errorf("features = %+v", got.Features)
	}
	if _, err := os.Stat(got.Figure); err != nil {
		t.Errorf("figure not written: %v", err)
	}
}

func TestRegressCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	path := writeConfig(t, tmpDir, "")
	writeProtocols(t, tmpDir)

	out, err := run(t, newRegressCmd(), "--config", path)
	if err != nil {
		t.Fatalf("regress error = %v", err)
	}
	for _, name := range []string{"Fig3_FFI.png", "Fig3_beyond_FFI.png", "Fig3_merged.png"} {
		if _, err := os.Stat(filepath.Join(tmpDir, "out", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
		if !strings.Contains(out, name) {
			t.Errorf("output does not mention %s", name)
		}
	}
}

func TestLatencyCmd_MissingWorkbook(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	path := writeConfig(t, tmpDir, "")
	if _, err := run(t, newLatencyCmd(), "--config", path); err == nil {
		t.Error("latency without workbook: error = nil")
	}
}
