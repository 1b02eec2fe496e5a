package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Realize the environment's current lockfile into the store",
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	storePath, err := env.Build(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(storePath))
	return nil
}
