package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"loyalty/internal/client/session"
	"loyalty/internal/shared/models"
)

func newRewardsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "rewards", Short: "Manage the rewards of your business"}

	var name, description, points, validFrom, validUntil string

	create := &cobra.Command{
		Use:   "create",
		Short: "Add a reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.CreateRewardRequest{Name: name, Description: models.StrPtr(description)}
			var err error
			if req.RequiredPoints, err = decimal.NewFromString(points); err != nil {
				return fmt.Errorf("--points: %w", err)
			}
			if req.ValidFromTimestamp, err = parseTime(validFrom); err != nil {
				return fmt.Errorf("--valid-from: %w", err)
			}
			if req.ValidUntilTimestamp, err = parseTime(validUntil); err != nil {
				return fmt.Errorf("--valid-until: %w", err)
			}
			return o.ownerMutation(cmd, func(ctx context.Context, s *cliSession) error {
				return s.store.CreateReward(ctx, req)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Reward name")
	create.Flags().StringVar(&description, "description", "", "Description")
	create.Flags().StringVar(&points, "points", "", "Points required to redeem, e.g. 100 or 12.5")
	create.Flags().StringVar(&validFrom, "valid-from", "", "Start of validity (RFC 3339); defaults to now")
	create.Flags().StringVar(&validUntil, "valid-until", "", "End of validity (RFC 3339)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("points")

	update := &cobra.Command{
		Use:   "update <reward-id>",
		Short: "Change fields of a reward; omitted flags are left as they are",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.UpdateRewardRequest
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("points") {
				d, err := decimal.NewFromString(points)
				if err != nil {
					return fmt.Errorf("--points: %w", err)
				}
				req.RequiredPoints = &d
			}
			var err error
			if req.ValidFromTimestamp, err = parseTime(validFrom); err != nil {
				return fmt.Errorf("--valid-from: %w", err)
			}
			if req.ValidUntilTimestamp, err = parseTime(validUntil); err != nil {
				return fmt.Errorf("--valid-until: %w", err)
			}
			return o.ownerMutation(cmd, func(ctx context.Context, s *cliSession) error {
				return s.store.UpdateReward(ctx, args[0], req)
			})
		},
	}
	update.Flags().StringVar(&name, "name", "", "Reward name")
	update.Flags().StringVar(&description, "description", "", "Description")
	update.Flags().StringVar(&points, "points", "", "Points required to redeem")
	update.Flags().StringVar(&validFrom, "valid-from", "", "Start of validity (RFC 3339)")
	update.Flags().StringVar(&validUntil, "valid-until", "", "End of validity (RFC 3339)")

	remove := &cobra.Command{
		Use:   "delete <reward-id>",
		Short: "Delete a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.ownerMutation(cmd, func(ctx context.Context, s *cliSession) error {
				return s.store.DeleteReward(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(create, update, remove)
	return cmd
}

// ownerMutation runs a change to the caller's business and prints the
// business once it has been refetched.
func (o *options) ownerMutation(cmd *cobra.Command, op func(ctx context.Context, s *cliSession) error) error {
	return o.run(cmd, func(ctx context.Context, s *cliSession) error {
		before, err := s.requireLogin(ctx)
		if err != nil {
			return err
		}
		if err := op(ctx, s); err != nil {
			return err
		}
		st, err := s.refreshed(ctx, before, session.ChannelOwnBusiness)
		if err != nil {
			return err
		}
		return o.renderOwnBusiness(cmd, st)
	})
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
