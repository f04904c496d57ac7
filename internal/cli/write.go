package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vestingdapp/internal/vesting"

	"github.com/spf13/cobra"
)

const defaultWait = 2 * time.Minute

func newCreateCommand(o *rootOptions) *cobra.Command {
	var (
		form vesting.ScheduleForm
		wait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a vesting schedule and wait for confirmation",
		Example: `  vestingd create --recipient 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC \
    --amount 0.1 --duration 31536000 --cliff 2592000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.session.CreateSchedule(cmd.Context(), form); err != nil {
				return a.userError(err)
			}
			h, err := waitTerminal(cmd.Context(), a.session, vesting.KindCreateSchedule, wait)
			if err != nil {
				return a.userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s tx=%s\n", h.Kind, h.Phase, h.Hash.Hex())
			fmt.Fprintln(cmd.OutOrStdout(), a.session.Status().Message)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&form.Recipient, "recipient", "", "beneficiary address")
	flags.StringVar(&form.Amount, "amount", "", "principal in ether, e.g. 0.1")
	flags.StringVar(&form.Duration, "duration", "", "vesting duration in seconds")
	flags.StringVar(&form.Cliff, "cliff", "0", "cliff in seconds")
	flags.DurationVar(&wait, "wait", defaultWait, "how long to wait for confirmation")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newClaimCommand(o *rootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the signer's vested balance and print what remains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.session.ClaimBalance(cmd.Context()); err != nil {
				return a.userError(err)
			}
			h, err := waitTerminal(cmd.Context(), a.session, vesting.KindClaimBalance, wait)
			if err != nil {
				return a.userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s tx=%s\n", h.Kind, h.Phase, h.Hash.Hex())
			if q, ok := a.session.Vested(); ok && q.Err == nil && q.Amount != nil {
				printVested(cmd, q)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for confirmation")
	return cmd
}

// waitTerminal blocks until the handle of kind is terminal. A failed handle is
// returned as its error.
func waitTerminal(ctx context.Context, s *vesting.Session, kind vesting.Kind, wait time.Duration) (vesting.Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	h, err := s.Wait(ctx, kind)
	if errors.Is(err, context.DeadlineExceeded) {
		return h, fmt.Errorf("still %s after %s", h.Phase, wait)
	}
	if err != nil {
		return h, err
	}
	if h.Phase == vesting.PhaseFailed {
		return h, h.Err
	}
	return h, nil
}
