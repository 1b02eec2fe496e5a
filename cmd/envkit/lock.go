package main

import (
	"context"
	"fmt"

	"github.com/envkit/core/pkg/manifest"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Resolve the manifest and write manifest.lock without building",
	RunE:  runLock,
}

func runLock(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	lock, err := env.Lock(context.Background())
	if err != nil {
		return err
	}
	if lock.Kind == manifest.KindLegacy {
		fmt.Fprintln(cmd.OutOrStdout(), "locked (legacy manifest.lock written)")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "locked %d package(s)\n", len(lock.Packages))
	return nil
}
