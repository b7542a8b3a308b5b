package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/travelboard/internal/client"
	"github.com/sakif/travelboard/internal/client/reconcile"
	"github.com/sakif/travelboard/internal/model"
)

// dashboardOptions are the flags of `travelboard dashboard`.
type dashboardOptions struct {
	server   string
	email    string
	cacheDir string
	wishes   []string
	verbose  bool
}

func newDashboardCmd() *cobra.Command {
	opts := &dashboardOptions{}
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Sign in and print a user's dashboard",
		Long: `Sign in to a running server and print trips, wishlist, hotels and saved
destinations. The local cache is printed first and replaced by the server's
answer; --wish adds wishlist entries optimistically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.server, "server", "http://localhost:8080", "API base URL")
	f.StringVar(&opts.email, "email", "", "account email (required)")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "local cache directory (default: user cache dir)")
	f.StringSliceVar(&opts.wishes, "wish", nil, "add a wishlist place (repeatable)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log sync details to stderr")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// runDashboard signs in, opens the user's cache and loads every collection.
//
// WHAT GETS PRINTED:
// Each collection prints once from the cache (if it holds anything) and
// again when the server answers. --wish entries print a local render at
// once and another when the server confirms them. Close waits for those
// confirmations before the command returns.
func runDashboard(cmd *cobra.Command, opts *dashboardOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logWriter, level := io.Discard, slog.LevelWarn
	if opts.verbose {
		logWriter, level = cmd.ErrOrStderr(), slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: level}))

	c, err := client.New(opts.server, nil)
	if err != nil {
		return err
	}
	password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
	if err != nil {
		return err
	}
	user, err := c.Login(ctx, opts.email, password, false)
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}
	fmt.Fprintf(out, "signed in as %s\n", user.DisplayName)

	store, err := openUserCache(opts.cacheDir, user.ID)
	if err != nil {
		return err
	}
	defer store.Close()

	d, err := reconcile.NewDashboard(c, store, user.ID, reconcile.TextViews(reconcile.NewPrinter(out)), logger)
	if err != nil {
		return err
	}

	// A failed collection is reported by its view; the others still load.
	loadErr := d.Load(ctx)

	for _, place := range opts.wishes {
		if _, err := d.Wishlist.Add(ctx, model.WishlistItem{Place: place}); err != nil {
			loadErr = errors.Join(loadErr, err)
		}
	}

	// Close waits for background saves before the process exits.
	return errors.Join(loadErr, d.Close())
}

// openUserCache opens the cache database of userID, one file per account
// under dir (default: <user cache dir>/travelboard).
func openUserCache(dir, userID string) (*reconcile.SQLiteStore, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locating cache dir: %w", err)
		}
		dir = filepath.Join(base, "travelboard")
	}
	if userID == "" || userID != filepath.Base(userID) {
		return nil, fmt.Errorf("unusable user id %q for a cache file", userID)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return reconcile.OpenSQLiteStore(filepath.Join(dir, userID+".db"))
}
