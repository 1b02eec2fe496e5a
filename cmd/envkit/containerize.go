package main

import (
	"context"
	"os"

	"github.com/envkit/core/pkg/output"
	"github.com/spf13/cobra"
)

var containerizeCmd = &cobra.Command{
	Use:   "containerize",
	Short: "Stream a container image build for the environment to stdout",
	RunE:  runContainerize,
}

func runContainerize(cmd *cobra.Command, args []string) error {
	env := newEnvironment()

	// The archive goes to stdout; the running byte count goes to stderr so
	// piping the image into a container runtime stays clean.
	progress := output.NewByteProgress(os.Stdout, os.Stderr, "streaming image")
	err := env.BuildContainer(context.Background(), progress)
	if err == nil {
		progress.Done()
	}
	return err
}
