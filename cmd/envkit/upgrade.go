package main

import (
	"context"
	"fmt"

	"github.com/envkit/core/pkg/display"
	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [group-or-install-id...]",
	Short: "Re-resolve installed packages, optionally scoped to groups or install-IDs",
	RunE:  runUpgrade,
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	result, err := env.Upgrade(context.Background(), args)
	if err != nil {
		return err
	}

	if len(result.Packages) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing changed")
		return nil
	}

	table := display.NewChangedPackagesTable()
	table.Fprint(cmd.OutOrStdout())
	for _, id := range result.Packages {
		fmt.Fprintln(cmd.OutOrStdout(), table.FormatRow(id))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", result.StorePath)
	return nil
}
