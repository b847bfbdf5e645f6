// Package cmd is the loyalty command-line client. Every command that talks to
// the server goes through a session.Store and prints the resources it settles.
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"loyalty/internal/client/config"
)

type options struct {
	cfg config.Config
}

func NewRootCmd(version, buildDate string) *cobra.Command {
	opts := &options{cfg: config.Load()}
	root := &cobra.Command{
		Use:           "loyalty",
		Short:         "Loyalty rewards CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.cfg.Validate()
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.cfg.ServerURL, "server", opts.cfg.ServerURL, "Server base URL")
	f.StringVarP(&opts.cfg.Output, "output", "o", opts.cfg.Output, "Output format: json or yaml")
	f.StringVar(&opts.cfg.TokenPath, "token-file", opts.cfg.TokenPath, "Where the sealed access token is kept")
	f.StringVar(&opts.cfg.VaultKeyPath, "vault-key", opts.cfg.VaultKeyPath, "Local vault key file")
	f.DurationVar(&opts.cfg.HTTPTimeout, "timeout", opts.cfg.HTTPTimeout, "Per-request timeout")
	f.StringVar(&opts.cfg.LogLevel, "log-level", opts.cfg.LogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newVaultCmd(opts))
	root.AddCommand(newAuthCmd(opts))
	root.AddCommand(newBusinessesCmd(opts))
	root.AddCommand(newRewardsCmd(opts))
	root.AddCommand(newEnrollmentsCmd(opts))
	root.AddCommand(newPointsCmd(opts))
	return root
}

// settleTimeout bounds how long a command waits for its resources.
func (o *options) settleTimeout() time.Duration {
	return 2*o.cfg.HTTPTimeout + time.Second
}
