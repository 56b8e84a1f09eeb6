package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludo67100/MFDeltaLat/internal/ledger"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the completed-run ledger",
		Long: `Inspect the SQLite ledger of completed runs configured by sweep.ledger.

Examples:
  ffi ledger list                  # All completed runs
  ffi ledger list --sweep <id>     # Runs of one sweep
  ffi ledger forget <label>        # Drop an entry (delete its spike file to rerun)`,
	}

	cmd.AddCommand(
		newLedgerListCmd(),
		newLedgerForgetCmd(),
	)
	return cmd
}

func openLedger(cmd *cobra.Command) (*ledger.SQLiteLedger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Sweep.Ledger == "" {
		return nil, fmt.Errorf("no ledger configured (set sweep.ledger)")
	}
	db, err := ledger.NewSQLiteLedger(cfg.Sweep.Ledger)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return db, nil
}

func newLedgerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			sweepID, _ := cmd.Flags().GetString("sweep")

			db, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.Entries(cmd.Context(), sweepID)
			if err != nil {
				return fmt.Errorf("listing ledger: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"ledger":  db.Path(),
					"entries": entries,
					"count":   len(entries),
				})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No completed runs.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s  %s\n", e.CompletedAt.Local().Format(time.DateTime), e.SweepID, e.Key)
			}
			fmt.Fprintf(out, "\n%d completed runs\n", len(entries))
			return nil
		},
	}
	cmd.Flags().String("sweep", "", "Only runs recorded by this sweep ID")
	return cmd
}

func newLedgerForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <label>",
		Short: "Remove a completed run from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			db, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Forget(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("forgetting %s: %w", args[0], err)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"forgotten": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
			return nil
		},
	}
}
