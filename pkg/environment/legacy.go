package environment

import (
	"context"

	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/lockfile"
	"github.com/envkit/core/pkg/resolver"
	"github.com/envkit/core/pkg/subprocess"
)

// runLegacySubcommand invokes the legacy package-database binary's
// "manifest {update|upgrade}" subcommand, following the same subprocess
// protocol the resolver facade's legacy lock path uses: fixed
// argv, JSON on stdout, non-zero exit carrying a structured error. An
// upgrade failure carries its own kind so callers can tell a failed
// upgrade from a failed lock.
func runLegacySubcommand(ctx context.Context, dir string, backend resolver.Backend, subcommand, manifestPath, lockPath string, extraArgs []string) (*lockfile.Lockfile, error) {
	argv := []string{
		backend.BinaryPath, "manifest", subcommand,
		"--ga-registry",
		"--global-manifest", backend.GlobalManifestPath,
		"--manifest", manifestPath,
	}
	if lockPath != "" {
		argv = append(argv, "--lockfile", lockPath)
	}
	argv = append(argv, extraArgs...)

	kind := errkind.KindLockedManifest
	if subcommand == "upgrade" {
		kind = errkind.KindUpgradeFailed
	}

	res, err := subprocess.Run(ctx, dir, argv...)
	if err != nil && res.ExitCode <= 0 {
		return nil, errkind.Wrap(kind, err)
	}
	if res.ExitCode != 0 {
		return nil, errkind.Wrap(kind, &errkind.BackendError{
			Command:  argv,
			ExitCode: res.ExitCode,
			Message:  res.CombinedOutput(),
		})
	}

	lock, err := lockfile.Parse(res.Stdout)
	if err != nil {
		if subcommand == "upgrade" {
			return nil, errkind.Wrap(errkind.KindParseUpgradeOutput, err)
		}
		return nil, err
	}
	return lock, nil
}
