package main

import (
	"os"

	"github.com/envkit/core/pkg/builder"
	"github.com/envkit/core/pkg/environment"
	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/resolver"
	"github.com/envkit/core/pkg/verbose"
	"github.com/spf13/cobra"
)

const (
	exitGenericFailure      = 1
	exitIncompatibleSystem  = 120
	exitIncompatiblePackage = 121
)

var exitFunc = os.Exit

var (
	envDirFlag         string
	backendBinaryFlag  string
	globalManifestFlag string
	verboseCount       int
)

var rootCmd = &cobra.Command{
	Use:   "envkit",
	Short: "Transact on a declarative package environment",
	Long: `envkit edits, locks, and builds a declarative package environment directory
(manifest.toml / manifest.lock) through an all-or-nothing transaction engine.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose.SetLevel(verbose.Level(verboseCount))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envDirFlag, "dir", "d", ".", "Environment directory")
	rootCmd.PersistentFlags().StringVar(&backendBinaryFlag, "backend-binary", "pkgdb", "Path to the legacy/catalog package-database binary")
	rootCmd.PersistentFlags().StringVar(&globalManifestFlag, "global-manifest", "", "Path to the global manifest the legacy backend merges in")
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "Increase verbosity (-v, -vv, -vvv)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(containerizeCmd)
	rootCmd.AddCommand(listCmd)
}

// Execute runs the root command and exits with a code classified from the
// returned error, keyed off errkind's backend exit-code taxonomy.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := classifyExitCode(err)
		verbose.Printf("exit %d: %v", code, err)
		exitFunc(code)
	}
}

func classifyExitCode(err error) int {
	switch {
	case errkind.IsIncompatibleSystemError(err):
		return exitIncompatibleSystem
	case errkind.IsIncompatiblePackageError(err):
		return exitIncompatiblePackage
	default:
		return exitGenericFailure
	}
}

// newEnvironment builds the ReadOnly view the subcommands operate through,
// wired to the CLI's --backend-binary/--global-manifest flags. A Catalog
// client is intentionally left nil: this CLI only talks to the legacy
// subprocess backend until a real catalog transport is configured by an
// embedder.
func newEnvironment() *environment.ReadOnly {
	backends := environment.Backends{
		Resolver: resolver.Backend{
			BinaryPath:         backendBinaryFlag,
			GlobalManifestPath: globalManifestFlag,
		},
		Builder: builder.Backend{BinaryPath: backendBinaryFlag},
	}
	return environment.NewReadOnly(envDirFlag, backends)
}
