package main

import (
	"context"
	"fmt"

	"github.com/envkit/core/pkg/builder"
	"github.com/spf13/cobra"
)

var linkStorePathFlag string

var linkCmd = &cobra.Command{
	Use:   "link <out-link>",
	Short: "Create or update a GC-root symlink to a realized store path",
	Args:  cobra.ExactArgs(1),
	RunE:  runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkStorePathFlag, "store-path", "", "Skip lockfile realization and link directly to this store path")
}

func runLink(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	storePath, err := env.Link(context.Background(), args[0], builder.StorePath(linkStorePathFlag))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(storePath))
	return nil
}
