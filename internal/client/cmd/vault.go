package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"loyalty/internal/client/vault"
)

func newVaultCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "vault", Short: "Manage the local key that seals the access token"}
	cmd.AddCommand(&cobra.Command{Use: "init", Short: "Generate the local vault key", RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := vault.Generate(o.cfg.VaultKeyPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Vault key generated at", o.cfg.VaultKeyPath)
		return nil
	}})
	cmd.AddCommand(&cobra.Command{Use: "status", Short: "Show vault status", Run: func(cmd *cobra.Command, args []string) {
		if vault.Exists(o.cfg.VaultKeyPath) {
			fmt.Fprintln(cmd.OutOrStdout(), "Vault: ready")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Vault: not initialized")
		}
	}})
	return cmd
}
