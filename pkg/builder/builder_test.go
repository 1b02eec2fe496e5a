package builder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"testing"

	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/subprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReturnsStorePath(t *testing.T) {
	orig := subprocess.Run
	defer func() { subprocess.Run = orig }()

	var gotArgv []string
	subprocess.Run = func(ctx context.Context, dir string, argv ...string) (subprocess.Result, error) {
		gotArgv = argv
		return subprocess.Result{Stdout: []byte("/nix/store/abc-env\n"), ExitCode: 0}, nil
	}

	path, err := Build(context.Background(), "/env", Backend{BinaryPath: "pkgdb"}, "/env/manifest.lock")
	require.NoError(t, err)
	assert.Equal(t, StorePath("/nix/store/abc-env"), path)
	assert.Contains(t, gotArgv, "buildenv")
}

func TestBuildNonZeroExitReturnsBackendError(t *testing.T) {
	orig := subprocess.Run
	defer func() { subprocess.Run = orig }()

	subprocess.Run = func(ctx context.Context, dir string, argv ...string) (subprocess.Result, error) {
		return subprocess.Result{ExitCode: 121, Stderr: []byte("eval failed")}, nil
	}

	_, err := Build(context.Background(), "/env", Backend{BinaryPath: "pkgdb"}, "/env/manifest.lock")
	require.Error(t, err)
	assert.True(t, errkind.IsIncompatiblePackageError(err))
}

func TestLinkWithStorePathSkipsRealization(t *testing.T) {
	orig := subprocess.Run
	defer func() { subprocess.Run = orig }()

	var gotArgv []string
	subprocess.Run = func(ctx context.Context, dir string, argv ...string) (subprocess.Result, error) {
		gotArgv = argv
		return subprocess.Result{Stdout: []byte("/nix/store/abc-env\n")}, nil
	}

	_, err := Link(context.Background(), "/env", Backend{BinaryPath: "pkgdb"}, "/env/manifest.lock", "/env/result", "/nix/store/abc-env")
	require.NoError(t, err)
	assert.Contains(t, gotArgv, "--store-path")
	assert.NotContains(t, gotArgv, "--lockfile")
}

func TestBuildContainerUnsupportedOnNonLinux(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Skip("only meaningful on a non-Linux host")
	}
	var buf bytes.Buffer
	err := BuildContainer(context.Background(), "/env", Backend{BinaryPath: "pkgdb"}, "/env/manifest.lock", &buf)
	require.Error(t, err)
	var kindErr *errkind.Error
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, errkind.KindContainerizeUnsupportedSystem, kindErr.Kind)
}

func TestBuildContainerStreamsOutputOnLinux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("exercises the Linux-only container path")
	}
	orig := subprocess.Stream
	defer func() { subprocess.Stream = orig }()

	subprocess.Stream = func(ctx context.Context, dir string, stdout io.Writer, argv ...string) (int, error) {
		_, _ = stdout.Write([]byte("image-bytes"))
		return 0, nil
	}

	var buf bytes.Buffer
	err := BuildContainer(context.Background(), "/env", Backend{BinaryPath: "pkgdb"}, "/env/manifest.lock", &buf)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", buf.String())
}

func TestBuildTransportErrorCarriesLockedManifestKind(t *testing.T) {
	orig := subprocess.Run
	defer func() { subprocess.Run = orig }()

	subprocess.Run = func(ctx context.Context, dir string, argv ...string) (subprocess.Result, error) {
		return subprocess.Result{}, errors.New("binary not found")
	}

	_, err := Build(context.Background(), "/env", Backend{BinaryPath: "pkgdb"}, "/env/manifest.lock")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindLockedManifest))
}

func TestBuildNonZeroExitIsKindClassifiable(t *testing.T) {
	orig := subprocess.Run
	defer func() { subprocess.Run = orig }()

	subprocess.Run = func(ctx context.Context, dir string, argv ...string) (subprocess.Result, error) {
		return subprocess.Result{ExitCode: 1, Stderr: []byte("boom")}, nil
	}

	_, err := Build(context.Background(), "/env", Backend{BinaryPath: "pkgdb"}, "/env/manifest.lock")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindLockedManifest))
}
