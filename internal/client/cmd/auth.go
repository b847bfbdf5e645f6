package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"loyalty/internal/client/session"
	"loyalty/internal/shared/models"
)

func newAuthCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Authentication commands"}

	var email string
	var owner bool
	register := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			req := models.RegisterRequest{Username: args[0], Password: password, EmailAddress: email, IsBusinessOwner: owner}
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				return o.signIn(ctx, cmd, s, func() error { return s.store.Register(ctx, req) })
			})
		},
	}
	register.Flags().StringVar(&email, "email", "", "Email address")
	register.Flags().BoolVar(&owner, "owner", false, "Register as a business owner")

	login := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				return o.signIn(ctx, cmd, s, func() error { return s.store.Login(ctx, args[0], password) })
			})
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the access token and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				if _, err := s.requireLogin(ctx); err != nil {
					return err
				}
				if err := s.store.Logout(ctx); err != nil {
					return err
				}
				if _, err := s.store.WaitFor(ctx, func(st session.State) bool { return !st.IsLoggedIn }); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				st, err := s.view(ctx, false, session.ChannelUser)
				if err != nil {
					return err
				}
				return renderResource(cmd.OutOrStdout(), o.cfg.Output, st.User, "loyalty auth whoami")
			})
		},
	}

	cmd.AddCommand(register, login, logout, whoami)
	return cmd
}

// signIn runs an operation that stores a new token and prints the user the
// resulting login fan-out resolves.
func (o *options) signIn(ctx context.Context, cmd *cobra.Command, s *cliSession, op func() error) error {
	before, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if err := op(); err != nil {
		return err
	}
	st, err := s.refreshed(ctx, before, session.ChannelUser)
	if err != nil {
		return err
	}
	return renderResource(cmd.OutOrStdout(), o.cfg.Output, st.User, "loyalty auth whoami")
}

// promptPassword reads a password without echo from a terminal, or a plain
// line when stdin is redirected.
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pass, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(pass), err
	}
	return readLine(in)
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
