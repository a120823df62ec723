package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxgate/decisionengine/store"
)

// NewOverridesCmd creates the "overrides" command group, managing the
// SQLite-backed forced-variation OverrideStore (§2.3 of SPEC_FULL.md).
func NewOverridesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Manage forced-variation overrides",
	}
	cmd.PersistentFlags().String("db", "overrides.db", "Path to the overrides SQLite database")

	cmd.AddCommand(newOverridesListCmd())
	cmd.AddCommand(newOverridesSetCmd())
	cmd.AddCommand(newOverridesClearCmd())
	return cmd
}

func openOverrideStore(cmd *cobra.Command) (*store.OverrideStore, error) {
	dsn, _ := cmd.Flags().GetString("db")
	return store.NewOverrideStore(store.OverrideStoreConfig{DSN: dsn})
}

func newOverridesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <experiment-key>",
		Short: "List forced-variation overrides for an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openOverrideStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.List(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("listing overrides: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, r := range rows {
				expiry := "never"
				if r.ExpiresAt != nil {
					expiry = r.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%s -> %s (expires %s)\n", r.UserID, r.VariationKey, expiry)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "no overrides")
			}
			return nil
		},
	}
	return cmd
}

func newOverridesSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <experiment-key> <user-id> <variation-key>",
		Short: "Force a user into a variation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")

			s, err := openOverrideStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var expiresAt *time.Time
			if ttl > 0 {
				t := time.Now().UTC().Add(ttl)
				expiresAt = &t
			}

			if err := s.Set(context.Background(), args[0], args[1], args[2], expiresAt); err != nil {
				return fmt.Errorf("setting override: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forced %s -> %s for experiment %s\n", args[1], args[2], args[0])
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 0, "Expire the override after this duration (0 = never)")
	return cmd
}

func newOverridesClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <experiment-key> [user-id]",
		Short: "Clear a forced-variation override (or every override for the experiment)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openOverrideStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				n, err := s.ClearExperiment(ctx, args[0])
				if err != nil {
					return fmt.Errorf("clearing overrides: %w", err)
				}
				fmt.Fprintf(out, "cleared %d override(s) for experiment %s\n", n, args[0])
				return nil
			}

			if err := s.Clear(ctx, args[0], args[1]); err != nil {
				if err == store.ErrOverrideNotFound {
					return exitError(exitNotFound, "no override for experiment %s, user %s", args[0], args[1])
				}
				return fmt.Errorf("clearing override: %w", err)
			}
			fmt.Fprintf(out, "cleared override for %s in experiment %s\n", args[1], args[0])
			return nil
		},
	}
	return cmd
}
