package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <install-id>...",
	Short: "Remove one or more packages from the install table",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	attempt, err := env.Uninstall(context.Background(), args)
	if err != nil {
		return err
	}
	if attempt.NewManifest == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to uninstall")
		return nil
	}
	if attempt.StorePath != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", *attempt.StorePath)
	}
	return nil
}
