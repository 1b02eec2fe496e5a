// Package txn implements the transaction engine: the subsystem
// that guarantees any mutation of env_dir either lands as a fully realized
// post-transaction snapshot or leaves the pre-transaction snapshot
// bit-identical, never something in between.
//
// The engine is deliberately ignorant of manifest/lockfile semantics; it
// only knows how to sandbox a directory, run a caller-supplied pipeline
// against the sandbox, and atomically swap the sandbox in. The crash-safe
// swap combines the original error with any failure encountered while
// trying to restore prior state, via errors.Join, rather than silently
// preferring one over the other.
package txn

import (
	"context"
	"errors"
	"os"

	"github.com/envkit/core/pkg/builder"
	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/verbose"
	copy "github.com/otiai10/copy"
)

// Engine runs transactions against environment directories.
type Engine struct {
	// TempRoot is the directory under which sandbox directories are
	// created. Empty means os.TempDir().
	TempRoot string
}

// PipelineFunc performs a transaction's edit-then-resolve-then-build work
// against the sandbox at dir, returning the store path the transaction
// should report on success.
type PipelineFunc func(ctx context.Context, dir string) (builder.StorePath, error)

// BackupSlot returns the crash-recovery sentinel path for envDir.
func BackupSlot(envDir string) string { return envDir + ".tmp" }

// Run executes the transaction protocol against envDir:
// sentinel check, sandbox creation, the caller's pipeline, and an atomic
// commit. If unsafe is true (the edit_unsafe variant), a
// pipeline failure does not abort the transaction: the sandbox is still
// committed, matching the recovery workflow edit_unsafe exists for, but
// the pipeline's error is still returned to the caller.
func (e *Engine) Run(ctx context.Context, envDir string, unsafe bool, pipeline PipelineFunc) (builder.StorePath, error) {
	if err := checkSentinel(envDir); err != nil {
		return "", err
	}

	sandboxDir, err := e.newSandbox(envDir)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.RemoveAll(sandboxDir); rmErr != nil {
			verbose.Debugf("txn: failed to clean up sandbox %s: %v", sandboxDir, rmErr)
		}
	}()

	storePath, pipelineErr := pipeline(ctx, sandboxDir)
	if pipelineErr != nil && !unsafe {
		return "", pipelineErr
	}

	if commitErr := commit(envDir, sandboxDir); commitErr != nil {
		return "", errors.Join(pipelineErr, commitErr)
	}

	return storePath, pipelineErr
}

// checkSentinel fails fast, before touching anything, when a prior
// transaction's backup slot is still present.
func checkSentinel(envDir string) error {
	backup := BackupSlot(envDir)
	if _, err := os.Stat(backup); err == nil {
		return errkind.WithPath(errkind.KindPriorTransaction, backup, nil)
	} else if !os.IsNotExist(err) {
		return errkind.WithPath(errkind.KindPriorTransaction, backup, err)
	}
	return nil
}

// newSandbox creates a fresh temporary directory and recursively copies
// envDir into it, preserving permissions.
func (e *Engine) newSandbox(envDir string) (string, error) {
	root := e.TempRoot
	if root == "" {
		root = os.TempDir()
	}

	dir, err := os.MkdirTemp(root, "envkit-sandbox-*")
	if err != nil {
		return "", errkind.Wrap(errkind.KindMakeSandbox, err)
	}

	if err := copy.Copy(envDir, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", errkind.Wrap(errkind.KindMakeTemporaryEnv, err)
	}

	return dir, nil
}

// commit performs the atomic directory swap: rename
// envDir to its backup slot, copy the sandbox into envDir's place, then
// remove the backup. A failure partway through is rolled back by restoring
// the backup; a failure during that restore is reported as AbortTransaction
// rather than silently losing the operator's only copy of prior state.
func commit(envDir, sandboxDir string) error {
	backup := BackupSlot(envDir)

	if _, err := os.Stat(backup); err == nil {
		return errkind.WithPath(errkind.KindPriorTransaction, backup, nil)
	}

	if err := os.Rename(envDir, backup); err != nil {
		return errkind.Wrap(errkind.KindBackupTransaction, err)
	}

	if err := copy.Copy(sandboxDir, envDir); err != nil {
		_ = os.RemoveAll(envDir)
		if restoreErr := os.Rename(backup, envDir); restoreErr != nil {
			return errkind.WithPath(errkind.KindAbortTransaction, backup, errors.Join(err, restoreErr))
		}
		return errkind.Wrap(errkind.KindMove, err)
	}

	if err := os.RemoveAll(backup); err != nil {
		return errkind.Wrap(errkind.KindRemoveBackup, err)
	}

	return nil
}
