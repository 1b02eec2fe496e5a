package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [input...]",
	Short: "Re-lock a legacy manifest's flake/catalog inputs",
	RunE:  runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	result, err := env.Update(context.Background(), args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", result.StorePath)
	return nil
}
