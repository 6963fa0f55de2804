package main

import (
	"context"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Request account access and switch to the required network",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, true, func(_ context.Context, a *app) error {
			return printJSON(cmd, a.rt.Session())
		})
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Parent command for the wallet network",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var networkSwitchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Switch the wallet to the required network, registering it when unknown",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			if err := a.rt.SwitchNetwork(ctx); err != nil {
				return err
			}
			return printJSON(cmd, a.rt.Session())
		})
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(networkCmd)
	networkCmd.AddCommand(networkSwitchCmd)
}
