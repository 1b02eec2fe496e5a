// Package errkind is the flat error taxonomy for the environment engine.
//
// Every failure the engine returns is (or wraps) a *Error carrying a Kind so
// callers can classify it without depending on internal error strings. The
// two classification predicates callers need,
// IsIncompatibleSystemError and IsIncompatiblePackageError, are built on top
// of this taxonomy.
package errkind

import (
	"errors"
	"fmt"
)

// Kind identifies the stage and reason a transaction or operation failed.
type Kind int

const (
	// KindModifyToml is returned by the editor on syntactically invalid manifest text.
	KindModifyToml Kind = iota
	// KindDeserializeManifest is returned when a manifest or lockfile fails to parse.
	KindDeserializeManifest
	// KindOpenManifest is returned when the manifest file cannot be read.
	KindOpenManifest
	// KindUpdateManifest is returned when writing a new manifest fails.
	KindUpdateManifest

	// KindMakeSandbox is returned when the transaction engine cannot create its temp dir.
	KindMakeSandbox
	// KindMakeTemporaryEnv is returned when copying env_dir into the sandbox fails.
	KindMakeTemporaryEnv
	// KindPriorTransaction is returned when the backup sentinel already exists.
	KindPriorTransaction
	// KindBackupTransaction is returned when renaming env_dir to the backup slot fails.
	KindBackupTransaction
	// KindAbortTransaction is returned when restoring the backup after a failed copy-in also fails.
	KindAbortTransaction
	// KindMove is returned when copying the sandbox into env_dir fails (but the backup restore succeeded).
	KindMove
	// KindRemoveBackup is returned when the backup slot cannot be removed after a successful commit.
	KindRemoveBackup
	// KindWriteLockfile is returned when the lockfile cannot be written to env_dir.
	KindWriteLockfile
	// KindBadLockfilePath is returned when the lockfile cannot be read from its
	// path, or is absent where an operation needs one.
	KindBadLockfilePath

	// KindLockedManifest wraps a package-database subprocess failure while
	// locking, building, linking, or containerizing.
	KindLockedManifest
	// KindParseUpgradeOutput is returned when the legacy backend's upgrade output cannot be parsed.
	KindParseUpgradeOutput
	// KindUpgradeFailed is returned when the legacy backend's upgrade subcommand fails.
	KindUpgradeFailed

	// KindContainerizeUnsupportedSystem is returned when containerizing on a non-Linux host.
	KindContainerizeUnsupportedSystem
	// KindCatalogClientMissing is returned when a Catalog manifest has no catalog client configured.
	KindCatalogClientMissing
)

var kindNames = map[Kind]string{
	KindModifyToml:                    "ModifyToml",
	KindDeserializeManifest:           "DeserializeManifest",
	KindOpenManifest:                  "OpenManifest",
	KindUpdateManifest:                "UpdateManifest",
	KindMakeSandbox:                   "MakeSandbox",
	KindMakeTemporaryEnv:              "MakeTemporaryEnv",
	KindPriorTransaction:              "PriorTransaction",
	KindBackupTransaction:             "BackupTransaction",
	KindAbortTransaction:              "AbortTransaction",
	KindMove:                          "Move",
	KindRemoveBackup:                  "RemoveBackup",
	KindWriteLockfile:                 "WriteLockfile",
	KindBadLockfilePath:               "BadLockfilePath",
	KindLockedManifest:                "LockedManifest",
	KindParseUpgradeOutput:            "ParseUpgradeOutput",
	KindUpgradeFailed:                 "UpgradeFailed",
	KindContainerizeUnsupportedSystem: "ContainerizeUnsupportedSystem",
	KindCatalogClientMissing:          "CatalogClientMissing",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the engine's single error type: a Kind, an optional path (used by
// PriorTransaction to report the offending backup slot), and an optional
// wrapped cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s(%s)", e.Kind, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// New builds a bare Error of the given kind.
func New(kind Kind) *Error { return &Error{Kind: kind} }

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// WithPath builds an Error carrying a path, such as the backup slot
// PriorTransaction refuses to touch.
func WithPath(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Is reports whether err is (or wraps) an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// BackendExitCode is the subset of the legacy package-database binary's exit
// codes the classification predicates below consult. Real codes come from
// the subprocess's exit status via BackendError.
type BackendExitCode int

// Exit codes from the legacy backend's subprocess protocol.
const (
	ExitLockfileIncompatibleSystem BackendExitCode = 120
	ExitPackageBuildFailure        BackendExitCode = 121
	ExitPackageEvalFailure         BackendExitCode = 122
	ExitPackageEvalIncompatibleSys BackendExitCode = 123
)

// BackendError wraps a non-zero exit from the legacy package-database binary
// or the builder, carrying the exit code the classification predicates key
// off of.
type BackendError struct {
	Command  []string
	ExitCode int
	Message  string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend exited %d: %s", e.ExitCode, e.Message)
	}
	return fmt.Sprintf("backend exited %d", e.ExitCode)
}

// IsIncompatibleSystemError reports whether err is (or wraps) a backend
// failure whose exit code is LOCKFILE_INCOMPATIBLE_SYSTEM.
func IsIncompatibleSystemError(err error) bool {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	return BackendExitCode(be.ExitCode) == ExitLockfileIncompatibleSystem
}

// IsIncompatiblePackageError reports whether err is a backend failure whose
// exit code is one of PACKAGE_BUILD_FAILURE, PACKAGE_EVAL_FAILURE, or
// PACKAGE_EVAL_INCOMPATIBLE_SYSTEM.
func IsIncompatiblePackageError(err error) bool {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	switch BackendExitCode(be.ExitCode) {
	case ExitPackageBuildFailure, ExitPackageEvalFailure, ExitPackageEvalIncompatibleSys:
		return true
	default:
		return false
	}
}
