package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/quantumauth-io/quantum-credential-client/cmd/credential-client/config"
)

type RootFlags struct {
	cfgFile string
}

var (
	rootFlags RootFlags
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "credential-client",
	Short:   "Issue, verify and revoke ledger credentials from a wallet",
	Version: Version + " (" + Commit + ", " + BuildDate + ")",
	Long: `
Issue, verify and revoke tamper-evident credentials recorded on the
CredentialVerification contract. Writes are signed by a wallet: either the
built-in local wallet or one reachable over JSON-RPC.

Every setting can be overridden with a QCC_ environment variable, for example
QCC_PROVIDER_KIND=rpc or QCC_LEDGER_CONTRACT_ADDRESS=0x...
	`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.Load(rootFlags.cfgFile, config.SearchPaths()...)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.cfgFile, "config", "", "configuration file (default: config.yaml in ~/.config/"+
		"quantum-credential-client, ~/config or .)")
}

// withApp builds the runtime for one command. connect asks the wallet for
// account access first.
func withApp(cmd *cobra.Command, connect bool, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if connect {
		if _, err := a.rt.Connect(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
