package cli

import (
	"context"
	"os"

	"vestingdapp/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootOptions struct {
	configPath string
	v          *viper.Viper
}

// NewRootCommand builds the vestingd command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "vestingd",
		Short: "Vesting contract client",
		Long: `vestingd drives a token vesting contract: it serves the client API, looks up
vested amounts and submits schedule and claim transactions.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (json, yaml or toml)")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("rpc-url", "", "JSON-RPC endpoint of the node")
	flags.Bool("fake", false, "use an in-memory contract instead of a node")
	_ = opts.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("chain.rpc_url", flags.Lookup("rpc-url"))
	_ = opts.v.BindPFlag("chain.fake", flags.Lookup("fake"))

	cmd.AddCommand(
		newServeCommand(opts),
		newOwnerCommand(opts),
		newVestedCommand(opts),
		newCreateCommand(opts),
		newClaimCommand(opts),
	)
	return cmd
}

func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
