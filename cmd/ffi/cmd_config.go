package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ludo67100/MFDeltaLat/internal/config"
	"github.com/ludo67100/MFDeltaLat/internal/sweep"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ffi configuration",
		Long: `View and create ffi configuration.

Configuration is stored in ~/.ffi/config.yaml unless --config is given.

Examples:
  ffi config list            # Show the effective settings
  ffi config init            # Write the defaults to ~/.ffi/config.yaml`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Paths:")
			fmt.Fprintf(out, "  data_dir:          %s\n", cfg.DataDir)
			fmt.Fprintf(out, "  output_dir:        %s\n", cfg.OutputDir)
			fmt.Fprintf(out, "  sweep.trace_dir:   %s\n", cfg.Sweep.TraceDir)
			fmt.Fprintf(out, "  sweep.ledger:      %s\n", valueOrDefault(cfg.Sweep.Ledger, "(not set)"))
			fmt.Fprintln(out)

			space, err := cfg.Sweep.Space()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Sweep:")
			for _, a := range space.Axes() {
				fmt.Fprintf(out, "  %-16s %s\n", a.Name+":", formatAxis(a))
			}
			fmt.Fprintf(out, "  combinations:    %d\n", space.Len())
			fmt.Fprintf(out, "  trials:          %d\n", cfg.Sweep.Trials)
			fmt.Fprintf(out, "  seed:            %d\n", cfg.Sweep.Seed)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Simulator:")
			fmt.Fprintf(out, "  backend:           %s\n", cfg.Simulator.Backend)
			fmt.Fprintf(out, "  python:            %s\n", cfg.Simulator.Python)
			fmt.Fprintf(out, "  timeout:           %s\n", valueOrDefault(durationString(cfg), "(none)"))
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Figures:")
			fmt.Fprintf(out, "  format:            %s\n", cfg.Figures.Format)
			fmt.Fprintf(out, "  latencies:         %s\n", cfg.Figures.Latencies)
			fmt.Fprintf(out, "  single:            %s\n", cfg.Figures.Single)
			fmt.Fprintf(out, "  surface:           %s\n", cfg.Figures.Surface)
			fmt.Fprintf(out, "  alpha:             %g\n", cfg.Figures.Alpha)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  level:             %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			force, _ := cmd.Flags().GetBool("force")

			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				homeDir, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to get home directory: %w", err)
				}
				path = filepath.Join(homeDir, ".ffi", "config.yaml")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			data, err := yaml.Marshal(config.Default())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

func formatAxis(a sweep.Axis) string {
	vals := make([]string, len(a.Values))
	for i, v := range a.Values {
		vals[i] = sweep.FormatFloat(v)
	}
	return "[" + strings.Join(vals, ", ") + "]"
}

func durationString(cfg *config.Config) string {
	if cfg.Simulator.Timeout == 0 {
		return ""
	}
	return cfg.Simulator.Timeout.String()
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
