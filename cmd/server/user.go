package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/service"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// promptPassword reads a password without echo from a terminal, or one
// line from in when stdin is not a terminal (scripts, pipes).
func promptPassword(in io.Reader, w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, prompt)
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// newUserCmd builds `travelboard user add`:
//
//	echo "$PASSWORD" | travelboard user add --email ann@example.com --name "Ann Lee"
//
// The same validation as POST /api/auth/register applies.
func newUserCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var email, name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a password account",
		Long: `Create a password account. The password is read from the terminal
without echo, or from the first line of stdin when it is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer db.Close()

			// CreateAccount touches neither sessions nor activity.
			accounts := service.NewAuthService(db.Users(), auth.NewPasswordService(cfg.BcryptCost), nil, nil, logger)
			user, err := accounts.CreateAccount(cmd.Context(), service.RegisterInput{
				FullName: name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "account email (required)")
	add.Flags().StringVar(&name, "name", "", "full name (required)")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("name")

	cmd.AddCommand(add)
	return cmd
}
