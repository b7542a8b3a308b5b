package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newSessionsCmd builds `travelboard sessions prune`, meant to run from cron:
//
//	travelboard sessions prune --older-than 720h
//
// Expired sessions already fail to resolve; pruning only keeps the table
// from growing without bound.
func newSessionsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain stored sign-in sessions",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions that have expired",
		Long: `Delete sessions whose expiry lies more than --older-than in the past,
whether or not they were logged out. Logout alone never deletes a row.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Sessions().DeleteExpired(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d expired session(s)\n", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "only delete sessions expired for at least this long")

	cmd.AddCommand(prune)
	return cmd
}
