package txn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/envkit/core/pkg/builder"
	"github.com/envkit/core/pkg/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnvDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.toml"), []byte("version = 1\n"), 0o644))
	return dir
}

func TestRunCommitsSandboxOnSuccess(t *testing.T) {
	envDir := newEnvDir(t)
	engine := &Engine{TempRoot: t.TempDir()}

	storePath, err := engine.Run(context.Background(), envDir, false, func(ctx context.Context, dir string) (builder.StorePath, error) {
		return "/nix/store/abc", os.WriteFile(filepath.Join(dir, "manifest.lock"), []byte(`{"version":1}`), 0o644)
	})
	require.NoError(t, err)
	assert.Equal(t, builder.StorePath("/nix/store/abc"), storePath)

	lockContent, err := os.ReadFile(filepath.Join(envDir, "manifest.lock"))
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(lockContent))

	_, statErr := os.Stat(BackupSlot(envDir))
	assert.True(t, os.IsNotExist(statErr), "backup slot must be removed after a successful commit")
}

func TestRunLeavesEnvDirUntouchedOnPipelineFailure(t *testing.T) {
	envDir := newEnvDir(t)
	engine := &Engine{TempRoot: t.TempDir()}

	before, err := os.ReadFile(filepath.Join(envDir, "manifest.toml"))
	require.NoError(t, err)

	wantErr := errors.New("resolve failed")
	_, err = engine.Run(context.Background(), envDir, false, func(ctx context.Context, dir string) (builder.StorePath, error) {
		return "", wantErr
	})
	require.ErrorIs(t, err, wantErr)

	after, err := os.ReadFile(filepath.Join(envDir, "manifest.toml"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, statErr := os.Stat(BackupSlot(envDir))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunUnsafeCommitsDespitePipelineFailure(t *testing.T) {
	envDir := newEnvDir(t)
	engine := &Engine{TempRoot: t.TempDir()}

	_, err := engine.Run(context.Background(), envDir, true, func(ctx context.Context, dir string) (builder.StorePath, error) {
		writeErr := os.WriteFile(filepath.Join(dir, "manifest.toml"), []byte("version = 1\n# edited\n"), 0o644)
		if writeErr != nil {
			return "", writeErr
		}
		return "", errors.New("build failed")
	})
	require.Error(t, err)

	content, readErr := os.ReadFile(filepath.Join(envDir, "manifest.toml"))
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "# edited", "edit_unsafe commits the sandbox even when the pipeline step fails")
}

func TestRunFailsFastWhenSentinelPresent(t *testing.T) {
	envDir := newEnvDir(t)
	require.NoError(t, os.MkdirAll(BackupSlot(envDir), 0o755))
	engine := &Engine{TempRoot: t.TempDir()}

	called := false
	_, err := engine.Run(context.Background(), envDir, false, func(ctx context.Context, dir string) (builder.StorePath, error) {
		called = true
		return "", nil
	})
	require.Error(t, err)
	assert.False(t, called, "pipeline must not run when the sentinel blocks the transaction")
	assert.True(t, errkind.Is(err, errkind.KindPriorTransaction))
}
