package cli

import (
	"fmt"

	"vestingdapp/internal/vesting"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newOwnerCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "owner",
		Short: "Print the vesting contract owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.session.RefreshOwner(cmd.Context())
			if err != nil {
				return a.userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Owner.Hex())
			return nil
		},
	}
}

func newVestedCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vested <address>",
		Short: "Look up the vested amount of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.session.CheckVested(cmd.Context(), args[0])
			if err != nil {
				return a.userError(err)
			}
			printVested(cmd, q)
			return nil
		},
	}
}

func printVested(cmd *cobra.Command, q vesting.VestedQuery) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ETH (%s wei, checked %s)\n",
		q.Subject.Hex(),
		vesting.FormatEther(q.Amount),
		humanize.BigComma(q.Amount.ToBig()),
		humanize.Time(q.CheckedAt))
}
