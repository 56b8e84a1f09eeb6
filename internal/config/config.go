// Package config provides unified configuration loading for ffi.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ludo67100/MFDeltaLat/internal/network"
	"github.com/ludo67100/MFDeltaLat/internal/sweep"
)

// Config contains all ffi configuration settings.
type Config struct {
	// DataDir holds the input spreadsheets.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// OutputDir receives the rendered figures.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	Sweep     SweepConfig     `json:"sweep" yaml:"sweep"`
	Simulator SimulatorConfig `json:"simulator" yaml:"simulator"`
	Figures   FiguresConfig   `json:"figures" yaml:"figures"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig configures ffi's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the sweep event log in the trace directory.
	// "trace" additionally logs every generated simulator script.
	Level string `json:"level" yaml:"level"`
}

// SweepConfig holds the swept axes and the fixed network parameters.
type SweepConfig struct {
	StimFreq  []float64 `json:"stim_freq" yaml:"stim_freq"`
	EIDelay   []float64 `json:"ei_delay" yaml:"ei_delay"`
	StimCount []float64 `json:"stim_count" yaml:"stim_count"`
	Ue        []float64 `json:"ue" yaml:"ue"`
	Ae        []float64 `json:"ae" yaml:"ae"`
	Ui        []float64 `json:"ui" yaml:"ui"`
	Ai        []float64 `json:"ai" yaml:"ai"`

	// Seed for the initial membrane potentials. Also passed to the
	// simulator's RNGs when non-zero.
	Seed uint64 `json:"seed" yaml:"seed"`

	// TraceDir is where the simulator writes spike and voltage files.
	TraceDir string `json:"trace_dir" yaml:"trace_dir"`

	// Ledger is an optional SQLite database recording completed runs.
	// When empty, completion is judged by the spike file alone.
	Ledger string `json:"ledger,omitempty" yaml:"ledger,omitempty"`

	network.Params `yaml:",inline"`
}

// SimulatorConfig selects and configures the simulator backend.
type SimulatorConfig struct {
	// Backend is "nest" (run PyNEST) or "script" (write scripts only).
	Backend string `json:"backend" yaml:"backend"`

	// Python is the interpreter with PyNEST importable.
	Python string `json:"python" yaml:"python"`

	// ScriptDir receives scripts from the "script" backend.
	ScriptDir string `json:"script_dir,omitempty" yaml:"script_dir,omitempty"`

	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// FiguresConfig names the input workbooks and the output format.
type FiguresConfig struct {
	// Format is the figure file extension: pdf, png, svg or eps.
	Format string `json:"format" yaml:"format"`

	Latencies string `json:"latencies" yaml:"latencies"`
	Single    string `json:"single" yaml:"single"`
	Surface   string `json:"surface" yaml:"surface"`

	// Alpha is the significance level for test selection.
	Alpha float64 `json:"alpha" yaml:"alpha"`
}

// Default returns a Config with the single-case sweep and published
// model parameters.
func Default() *Config {
	c := &Config{
		DataDir:   ".",
		OutputDir: "figures",
		Sweep: SweepConfig{
			StimFreq:  []float64{10},
			EIDelay:   []float64{0},
			StimCount: []float64{5},
			Ue:        []float64{0.03},
			Ae:        []float64{2.0},
			Ui:        []float64{0.3},
			Ai:        []float64{1.5},
			TraceDir:  "data",
		},
		Simulator: SimulatorConfig{
			Backend: "nest",
			Python:  "python3",
		},
		Figures: FiguresConfig{
			Format:    "pdf",
			Latencies: "MossyFibersSpikeLatencies.xlsx",
			Single:    "Single_Protocol_ProcessedData.xlsx",
			Surface:   "Surface_Protocol_ProcessedData.xlsx",
			Alpha:     0.05,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
	c.Sweep.Params.Defaults()
	return c
}

// FullSweep returns the complete published grid of release probabilities,
// amplitudes, frequencies, delays and pulse counts.
func FullSweep() SweepConfig {
	s := Default().Sweep
	s.Ue = []float64{0.02, 0.03, 0.05, 0.07, 0.1, 0.2, 0.3, 0.4}
	s.Ui = []float64{0.03, 0.05, 0.07, 0.1, 0.15, 0.2, 0.3, 0.4}
	s.Ae = nil
	for _, a := range []float64{0.5, 1.5, 2, 2.5, 3, 3.5, 4} {
		s.Ae = append(s.Ae, a*1.5)
	}
	s.Ai = []float64{1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}
	s.StimFreq = []float64{10, 20, 30, 40, 50, 75, 100, 125, 150, 175, 200}
	s.EIDelay = nil
	for d := -5; d <= 6; d++ {
		s.EIDelay = append(s.EIDelay, float64(d))
	}
	s.StimCount = nil
	for n := 1; n <= 7; n++ {
		s.StimCount = append(s.StimCount, float64(n))
	}
	return s
}

// UseFullGrid replaces the swept axes with those of FullSweep, keeping
// the network parameters, seed and paths.
func (s *SweepConfig) UseFullGrid() {
	full := FullSweep()
	s.StimFreq, s.EIDelay, s.StimCount = full.StimFreq, full.EIDelay, full.StimCount
	s.Ue, s.Ae, s.Ui, s.Ai = full.Ue, full.Ae, full.Ui, full.Ai
}

// Space builds the parameter space described by the sweep axes.
func (s SweepConfig) Space() (*sweep.Space, error) {
	return sweep.NewSpace(
		sweep.NewAxis(sweep.AxisFreq, s.StimFreq...),
		sweep.NewAxis(sweep.AxisDelay, s.EIDelay...),
		sweep.NewAxis(sweep.AxisCount, s.StimCount...),
		sweep.NewAxis(sweep.AxisUe, s.Ue...),
		sweep.NewAxis(sweep.AxisAe, s.Ae...),
		sweep.NewAxis(sweep.AxisUi, s.Ui...),
		sweep.NewAxis(sweep.AxisAi, s.Ai...),
	)
}

// WorkbookPath resolves a workbook name against the data directory.
func (c *Config) WorkbookPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// FigurePath names an output figure with the configured extension.
func (c *Config) FigurePath(base string) string {
	return filepath.Join(c.OutputDir, base+"."+c.Figures.Format)
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.ffi/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".ffi", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Unset fields
// keep their defaults; a listed axis replaces the default axis entirely.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.DataDir = expandEnvVars(config.DataDir)
	config.OutputDir = expandEnvVars(config.OutputDir)
	config.Sweep.TraceDir = expandEnvVars(config.Sweep.TraceDir)
	config.Sweep.Ledger = expandEnvVars(config.Sweep.Ledger)

	return config, nil
}

// LoadPath loads path when given, otherwise the default locations.
// Environment overrides apply either way.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.Sweep.Space(); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if err := c.Sweep.Params.Validate(); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	validBackends := map[string]bool{"nest": true, "script": true}
	if !validBackends[c.Simulator.Backend] {
		return fmt.Errorf("invalid simulator backend: %s (valid: nest, script)", c.Simulator.Backend)
	}
	if c.Simulator.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Simulator.Timeout)
	}

	validFormats := map[string]bool{"pdf": true, "png": true, "svg": true, "eps": true, "jpg": true, "tif": true}
	if !validFormats[c.Figures.Format] {
		return fmt.Errorf("invalid figure format: %s (valid: pdf, png, svg, eps, jpg, tif)", c.Figures.Format)
	}
	if c.Figures.Alpha <= 0 || c.Figures.Alpha >= 1 {
		return fmt.Errorf("alpha must be between 0 and 1, got %f", c.Figures.Alpha)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("FFI_DATA_DIR"); v != "" {
		config.DataDir = v
	}

	if v := os.Getenv("FFI_OUTPUT_DIR"); v != "" {
		config.OutputDir = v
	}

	if v := os.Getenv("FFI_PYTHON"); v != "" {
		config.Simulator.Python = v
	}

	if v := os.Getenv("FFI_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Sweep.Seed = n
		}
	}

	if v := os.Getenv("FFI_TRIALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sweep.Trials = n
		}
	}

	if v := os.Getenv("FFI_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
