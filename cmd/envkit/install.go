package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/envkit/core/pkg/editor"
	"github.com/envkit/core/pkg/manifest"
	"github.com/spf13/cobra"
)

var installIDFlag string

var installCmd = &cobra.Command{
	Use:   "install <pkg-path>...",
	Short: "Add one or more packages to the install table",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installIDFlag, "id", "", "Install-ID to use; only valid with a single package argument")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if installIDFlag != "" && len(args) != 1 {
		return fmt.Errorf("--id requires exactly one package argument")
	}

	pkgs := make([]editor.PackageToInstall, 0, len(args))
	for _, pkgPath := range args {
		id := installIDFlag
		if id == "" {
			id = deriveInstallID(pkgPath)
		}
		pkgs = append(pkgs, editor.PackageToInstall{
			InstallID:  id,
			Descriptor: manifest.Descriptor{PkgPath: pkgPath},
		})
	}

	env := newEnvironment()
	attempt, err := env.Install(context.Background(), pkgs)
	if err != nil {
		return err
	}

	for id := range attempt.AlreadyInstalled {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already installed\n", id)
	}
	if attempt.NewManifest == nil {
		return nil
	}
	if attempt.StorePath != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", *attempt.StorePath)
	}
	return nil
}

// deriveInstallID picks a default install-ID from a package-path string such
// as "nixpkgs#hello" or "nodejs", taking the final '#' or '/' segment.
func deriveInstallID(pkgPath string) string {
	id := pkgPath
	if i := strings.LastIndexByte(id, '#'); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}
	return id
}
