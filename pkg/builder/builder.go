// Package builder implements the builder facade: turning a lock
// into a realized store path (and optional out-link), delegating to the
// package-database binary's buildenv subcommand the same way the resolver
// facade delegates the legacy lock path to it.
package builder

import (
	"context"
	"io"
	"runtime"

	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/subprocess"
)

// StorePath is an opaque, content-addressed build output path.
type StorePath string

// Backend is the external package-database binary the facade delegates to.
type Backend struct {
	BinaryPath string
}

// Build realizes the lock at lockPath into a store path.
func Build(ctx context.Context, dir string, backend Backend, lockPath string) (StorePath, error) {
	argv := []string{backend.BinaryPath, "buildenv", "--lockfile", lockPath}
	return runBuild(ctx, dir, argv)
}

// Link realizes the lock at lockPath (unless storePath is already known, in
// which case realization is skipped and only the link is created) and
// points outLink at the result.
func Link(ctx context.Context, dir string, backend Backend, lockPath, outLink string, storePath StorePath) (StorePath, error) {
	argv := []string{backend.BinaryPath, "buildenv", "--out-link", outLink}
	if storePath != "" {
		argv = append(argv, "--store-path", string(storePath))
	} else {
		argv = append(argv, "--lockfile", lockPath)
	}
	return runBuild(ctx, dir, argv)
}

func runBuild(ctx context.Context, dir string, argv []string) (StorePath, error) {
	res, err := subprocess.Run(ctx, dir, argv...)
	if err != nil && res.ExitCode <= 0 {
		return "", errkind.Wrap(errkind.KindLockedManifest, err)
	}
	if res.ExitCode != 0 {
		return "", errkind.Wrap(errkind.KindLockedManifest, &errkind.BackendError{
			Command:  argv,
			ExitCode: res.ExitCode,
			Message:  res.CombinedOutput(),
		})
	}
	return StorePath(trimTrailingNewline(res.Stdout)), nil
}

// BuildContainer streams a container image archive for the given lock
// into sink. Containerization is only supported on Linux hosts.
func BuildContainer(ctx context.Context, dir string, backend Backend, lockPath string, sink io.Writer) error {
	if runtime.GOOS != "linux" {
		return errkind.WithPath(errkind.KindContainerizeUnsupportedSystem, runtime.GOOS, nil)
	}

	argv := []string{backend.BinaryPath, "containerize", "--lockfile", lockPath, "--runtime", "docker"}
	exitCode, err := subprocess.Stream(ctx, dir, sink, argv...)
	if err != nil && exitCode <= 0 {
		return errkind.Wrap(errkind.KindLockedManifest, err)
	}
	if exitCode != 0 {
		be := &errkind.BackendError{Command: argv, ExitCode: exitCode}
		if err != nil {
			be.Message = err.Error()
		}
		return errkind.Wrap(errkind.KindLockedManifest, be)
	}
	return nil
}

func trimTrailingNewline(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
