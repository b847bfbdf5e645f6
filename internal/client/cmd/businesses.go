package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"loyalty/internal/client/session"
	"loyalty/internal/shared/models"
)

func newBusinessesCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "businesses", Short: "Browse businesses and manage your own"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List businesses with their rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				st, err := s.view(ctx, true, session.ChannelBusinesses)
				if err != nil {
					return err
				}
				return renderResource(cmd.OutOrStdout(), o.cfg.Output, st.Businesses, "loyalty businesses list")
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "mine",
		Short: "Show the business you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, s *cliSession) error {
				st, err := s.view(ctx, false, session.ChannelOwnBusiness)
				if err != nil {
					return err
				}
				return o.renderOwnBusiness(cmd, st)
			})
		},
	})

	var req models.UpsertBusinessRequest
	var description, address, phone string
	upsert := &cobra.Command{
		Use:   "upsert",
		Short: "Create or update your business",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Description = models.StrPtr(description)
			req.Address = models.StrPtr(address)
			req.PhoneNumber = models.StrPtr(phone)
			return o.ownerMutation(cmd, func(ctx context.Context, s *cliSession) error {
				return s.store.UpsertOwnBusiness(ctx, req)
			})
		},
	}
	f := upsert.Flags()
	f.StringVar(&req.BusinessName, "name", "", "Business name")
	f.StringVar(&req.EmailAddress, "email", "", "Contact email")
	f.StringVar(&description, "description", "", "Description")
	f.StringVar(&address, "address", "", "Street address")
	f.StringVar(&phone, "phone", "", "Phone number")
	_ = upsert.MarkFlagRequired("name")
	_ = upsert.MarkFlagRequired("email")
	cmd.AddCommand(upsert)

	return cmd
}

func (o *options) renderOwnBusiness(cmd *cobra.Command, st session.State) error {
	if b, ok := st.OwnBusiness.Data(); ok && b == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No business yet; create one with `loyalty businesses upsert`")
		return nil
	}
	return renderResource(cmd.OutOrStdout(), o.cfg.Output, st.OwnBusiness, "loyalty businesses mine")
}
