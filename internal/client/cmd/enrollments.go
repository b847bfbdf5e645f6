package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"loyalty/internal/client/session"
)

func newEnrollmentsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "enrollments", Short: "Loyalty program memberships"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your enrollments and point balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				st, err := s.view(ctx, false, session.ChannelEnrollments)
				if err != nil {
					return err
				}
				return renderResource(cmd.OutOrStdout(), o.cfg.Output, st.Enrollments, "loyalty enrollments list")
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enroll <business-id>",
		Short: "Join a business's loyalty program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.enrollmentMutation(cmd, func(ctx context.Context, s *cliSession) error {
				return s.store.Enroll(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <business-id>",
		Short: "Leave a business's loyalty program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.enrollmentMutation(cmd, func(ctx context.Context, s *cliSession) error {
				return s.store.CancelEnrollment(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "customers",
		Short: "List customers enrolled in your business",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				st, err := s.view(ctx, false, session.ChannelCustomers)
				if err != nil {
					return err
				}
				return renderResource(cmd.OutOrStdout(), o.cfg.Output, st.Customers, "loyalty enrollments customers")
			})
		},
	})

	return cmd
}

func (o *options) enrollmentMutation(cmd *cobra.Command, op func(ctx context.Context, s *cliSession) error) error {
	return o.run(cmd, func(ctx context.Context, s *cliSession) error {
		before, err := s.requireLogin(ctx)
		if err != nil {
			return err
		}
		if err := op(ctx, s); err != nil {
			return err
		}
		st, err := s.refreshed(ctx, before, session.ChannelEnrollments)
		if err != nil {
			return err
		}
		return renderResource(cmd.OutOrStdout(), o.cfg.Output, st.Enrollments, "loyalty enrollments list")
	})
}
