package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPointsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "points", Short: "Credit and spend customer points (business owners)"}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <user-id> <points>",
		Short: "Credit points to a customer of your business",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("points: %w", err)
			}
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				if _, err := s.requireLogin(ctx); err != nil {
					return err
				}
				resp, err := s.store.AddPoints(ctx, args[0], points)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), o.cfg.Output, resp)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "redeem <user-id> <reward-id>",
		Short: "Redeem a reward for a customer of your business",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				if _, err := s.requireLogin(ctx); err != nil {
					return err
				}
				resp, err := s.store.RedeemReward(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), o.cfg.Output, resp)
			})
		},
	})

	return cmd
}
