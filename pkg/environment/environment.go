// Package environment implements the environment view: a
// state-typed handle over an EnvironmentDir distinguishing ReadOnly from
// ReadWrite access. Only ReadOnly is constructible from a directory path;
// ReadWrite is reachable only from inside a transaction's sandbox, so a
// manifest or lockfile write can never happen outside the transaction
// engine's atomicity guarantee.
//
// The distinction is encoded via two
// distinct Go types sharing an unexported core rather than a
// phantom-parameterized generic, since Go generics cannot restrict which
// package may instantiate a type parameter the way an unexported
// constructor restricts which package may produce a value.
package environment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/envkit/core/pkg/builder"
	"github.com/envkit/core/pkg/editor"
	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/lockfile"
	"github.com/envkit/core/pkg/manifest"
	"github.com/envkit/core/pkg/resolver"
	"github.com/envkit/core/pkg/txn"
)

const (
	manifestFileName = "manifest.toml"
	lockFileName     = "manifest.lock"
)

// Backends bundles the external collaborators the resolver and builder
// facades delegate to. The core treats both as black boxes.
type Backends struct {
	Resolver resolver.Backend
	Builder  builder.Backend
}

// core is the state shared by ReadOnly and ReadWrite. Its zero value is
// never valid outside this package: both view types must be constructed
// through NewReadOnly or newReadWrite.
type core struct {
	dir      string
	backends Backends
	engine   *txn.Engine
}

func (c *core) manifestPath() string { return filepath.Join(c.dir, manifestFileName) }
func (c *core) lockfilePath() string { return filepath.Join(c.dir, lockFileName) }

// readManifestText returns the manifest's text, or "" if manifest.toml does
// not exist yet (a freshly provisioned, not-yet-edited environment).
func (c *core) readManifestText() (string, error) {
	data, err := os.ReadFile(c.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errkind.Wrap(errkind.KindOpenManifest, err)
	}
	return string(data), nil
}

// readLockfile returns the parsed lockfile, or nil if manifest.lock does
// not exist yet.
func (c *core) readLockfile() (*lockfile.Lockfile, error) {
	data, err := os.ReadFile(c.lockfilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.KindBadLockfilePath, err)
	}
	return lockfile.Parse(data)
}

// ReadOnly is the handle every caller outside this package starts from.
type ReadOnly struct{ core }

// ReadWrite is only returned from inside a transaction's sandbox (via
// newReadWrite); it embeds ReadOnly so every read-only operation remains
// available, since sandboxes can themselves be sandboxed
// during upgrade testing, which this embedding makes possible for free.
type ReadWrite struct{ ReadOnly }

// NewReadOnly opens a ReadOnly view over an existing environment directory.
func NewReadOnly(dir string, backends Backends) *ReadOnly {
	return &ReadOnly{core{dir: dir, backends: backends, engine: &txn.Engine{}}}
}

// newReadWrite is unexported: only commitManifestPath and
// commitLockfilePath, running inside a transaction's sandbox, construct one.
func newReadWrite(dir string, backends Backends) *ReadWrite {
	return &ReadWrite{ReadOnly{core{dir: dir, backends: backends, engine: &txn.Engine{}}}}
}

// updateManifest overwrites the view's manifest.toml. Private to ReadWrite
// so a write can only happen inside a transaction's sandbox.
func (rw *ReadWrite) updateManifest(text string) error {
	if err := os.WriteFile(rw.manifestPath(), []byte(text), 0o644); err != nil {
		return errkind.Wrap(errkind.KindUpdateManifest, err)
	}
	return nil
}

// updateLockfile overwrites the view's manifest.lock. Private to ReadWrite
// so a write can only happen inside a transaction's sandbox.
func (rw *ReadWrite) updateLockfile(lock *lockfile.Lockfile) error {
	data, err := lock.Marshal()
	if err != nil {
		return errkind.Wrap(errkind.KindWriteLockfile, err)
	}
	if err := os.WriteFile(rw.lockfilePath(), data, 0o644); err != nil {
		return errkind.Wrap(errkind.KindWriteLockfile, err)
	}
	return nil
}

// InstallationAttempt is install's result.
type InstallationAttempt struct {
	NewManifest      *string
	AlreadyInstalled map[string]manifest.Descriptor
	StorePath        *builder.StorePath
}

// UninstallationAttempt is uninstall's result.
type UninstallationAttempt struct {
	NewManifest *string
	StorePath   *builder.StorePath
}

// EditResultKind tags EditResult's variant.
type EditResultKind int

const (
	EditUnchanged EditResultKind = iota
	EditReActivateRequired
	EditSuccess
)

// EditResult is edit's tagged result.
type EditResult struct {
	Kind      EditResultKind
	StorePath builder.StorePath
}

// UpgradeResult is upgrade's result.
type UpgradeResult struct {
	Packages  []string
	StorePath builder.StorePath
}

// UpdateResult is update's result.
type UpdateResult struct {
	NewLockfile *lockfile.Lockfile
	OldLockfile *lockfile.Lockfile
	StorePath   builder.StorePath
}

// ManifestText returns the environment's current manifest.toml contents, or
// "" if none has been written yet. Callers that need to present the text
// for editing (e.g. an $EDITOR round-trip before Edit/EditUnsafe) use this
// instead of reaching into the unexported core.
func (e *ReadOnly) ManifestText() (string, error) {
	return e.readManifestText()
}

// CurrentLockfile returns the environment's existing manifest.lock, or nil
// if none has been written yet. Unlike Lock, this never resolves or writes
// anything; it is a plain read of whatever is already on disk.
func (e *ReadOnly) CurrentLockfile() (*lockfile.Lockfile, error) {
	return e.readLockfile()
}

// Install runs editor.Insert against the current manifest, then a
// manifest-path transaction if anything was actually added.
func (e *ReadOnly) Install(ctx context.Context, packages []editor.PackageToInstall) (*InstallationAttempt, error) {
	text, err := e.readManifestText()
	if err != nil {
		return nil, err
	}

	result, err := editor.Insert(text, packages)
	if err != nil {
		return nil, err
	}

	if result.NewText == nil {
		return &InstallationAttempt{AlreadyInstalled: result.AlreadyInstalled}, nil
	}

	storePath, _, err := e.commitManifestPath(ctx, *result.NewText, false)
	if err != nil {
		return nil, err
	}

	return &InstallationAttempt{
		NewManifest:      result.NewText,
		AlreadyInstalled: result.AlreadyInstalled,
		StorePath:        &storePath,
	}, nil
}

// Uninstall runs editor.Remove against the current manifest, then a
// manifest-path transaction if anything changed.
func (e *ReadOnly) Uninstall(ctx context.Context, ids []string) (*UninstallationAttempt, error) {
	text, err := e.readManifestText()
	if err != nil {
		return nil, err
	}

	newText, err := editor.Remove(text, ids)
	if err != nil {
		return nil, err
	}

	if newText == text {
		return &UninstallationAttempt{}, nil
	}

	storePath, _, err := e.commitManifestPath(ctx, newText, false)
	if err != nil {
		return nil, err
	}

	return &UninstallationAttempt{NewManifest: &newText, StorePath: &storePath}, nil
}

// Edit replaces the manifest text outright. It is a no-op if newText equals
// the current text; otherwise it runs a manifest-path transaction and
// classifies the result by comparing the old and new manifests' hook and
// vars.
func (e *ReadOnly) Edit(ctx context.Context, newText string) (*EditResult, error) {
	current, err := e.readManifestText()
	if err != nil {
		return nil, err
	}
	if current == newText {
		return &EditResult{Kind: EditUnchanged}, nil
	}

	oldM, err := manifest.Parse(current)
	if err != nil {
		return nil, err
	}
	newM, err := manifest.Parse(newText)
	if err != nil {
		return nil, err
	}

	storePath, _, err := e.commitManifestPath(ctx, newText, false)
	if err != nil {
		return nil, err
	}

	if needsReActivate(oldM, newM) {
		return &EditResult{Kind: EditReActivateRequired, StorePath: storePath}, nil
	}
	return &EditResult{Kind: EditSuccess, StorePath: storePath}, nil
}

// EditUnsafe is the edit_unsafe variant: it replaces the
// environment even if the build step fails. The swap is still atomic; the
// resulting environment may simply not build. It exists to support a
// specific user recovery workflow, not general use.
func (e *ReadOnly) EditUnsafe(ctx context.Context, newText string) (*EditResult, error) {
	current, err := e.readManifestText()
	if err != nil {
		return nil, err
	}
	if current == newText {
		return &EditResult{Kind: EditUnchanged}, nil
	}

	storePath, _, err := e.commitManifestPath(ctx, newText, true)
	return &EditResult{Kind: EditSuccess, StorePath: storePath}, err
}

func needsReActivate(oldM, newM *manifest.Manifest) bool {
	return !reflect.DeepEqual(oldM.Hook, newM.Hook) || !reflect.DeepEqual(oldM.Vars, newM.Vars)
}

// Update invokes the legacy backend's "manifest update" subcommand with the
// given inputs, then commits the resulting lock via a lockfile-path
// transaction. Update is only meaningful for Legacy manifests.
func (e *ReadOnly) Update(ctx context.Context, inputs []string) (*UpdateResult, error) {
	oldLock, err := e.readLockfile()
	if err != nil {
		return nil, err
	}

	newLock, err := runLegacySubcommand(ctx, e.dir, e.backends.Resolver, "update", e.manifestPath(), e.lockfilePath(), inputs)
	if err != nil {
		return nil, err
	}

	storePath, err := e.commitLockfilePath(ctx, newLock)
	if err != nil {
		return nil, err
	}

	return &UpdateResult{NewLockfile: newLock, OldLockfile: oldLock, StorePath: storePath}, nil
}

// Upgrade re-resolves some or all of the manifest's pinned packages: for
// Legacy manifests it delegates to the legacy backend's "manifest upgrade"
// subcommand; for Catalog manifests it strips the matching pins from the
// seed lock and re-resolves (an empty filter strips everything, forcing
// full re-resolution).
func (e *ReadOnly) Upgrade(ctx context.Context, groupsOrIDs []string) (*UpgradeResult, error) {
	text, err := e.readManifestText()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(text)
	if err != nil {
		return nil, err
	}

	oldLock, err := e.readLockfile()
	if err != nil {
		return nil, err
	}

	var newLock *lockfile.Lockfile
	if m.Kind == manifest.KindLegacy {
		newLock, err = runLegacySubcommand(ctx, e.dir, e.backends.Resolver, "upgrade", e.manifestPath(), e.lockfilePath(), groupsOrIDs)
	} else {
		seed := stripPins(oldLock, groupsOrIDs)
		newLock, err = resolver.Resolve(ctx, e.dir, m, e.manifestPath(), e.lockfilePath(), seed, e.backends.Resolver)
	}
	if err != nil {
		return nil, err
	}

	storePath, err := e.commitLockfilePath(ctx, newLock)
	if err != nil {
		return nil, err
	}

	return &UpgradeResult{Packages: diffDerivations(oldLock, newLock), StorePath: storePath}, nil
}

// Lock resolves the manifest and writes manifest.lock directly, without
// going through the transaction engine: the
// lockfile as an idempotent cache over the manifest, not a transacted
// artifact in its own right.
func (e *ReadOnly) Lock(ctx context.Context) (*lockfile.Lockfile, error) {
	text, err := e.readManifestText()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(text)
	if err != nil {
		return nil, err
	}

	seed, err := e.readLockfile()
	if err != nil {
		return nil, err
	}
	seed = resolver.TieBreakSeed(m, seed)

	lock, err := resolver.Resolve(ctx, e.dir, m, e.manifestPath(), e.lockfilePath(), seed, e.backends.Resolver)
	if err != nil {
		return nil, err
	}

	data, err := lock.Marshal()
	if err != nil {
		return nil, errkind.Wrap(errkind.KindWriteLockfile, err)
	}
	if err := os.WriteFile(e.lockfilePath(), data, 0o644); err != nil {
		return nil, errkind.Wrap(errkind.KindWriteLockfile, err)
	}
	return lock, nil
}

// Build reads the current lock and realizes it into a store path.
func (e *ReadOnly) Build(ctx context.Context) (builder.StorePath, error) {
	lock, err := e.readLockfile()
	if err != nil {
		return "", err
	}
	if lock == nil {
		return "", errkind.WithPath(errkind.KindBadLockfilePath, e.lockfilePath(), fmt.Errorf("no lockfile present"))
	}
	return builder.Build(ctx, e.dir, e.backends.Builder, e.lockfilePath())
}

// Link points outLink at storePath, realizing the current lock first if
// storePath is empty.
func (e *ReadOnly) Link(ctx context.Context, outLink string, storePath builder.StorePath) (builder.StorePath, error) {
	return builder.Link(ctx, e.dir, e.backends.Builder, e.lockfilePath(), outLink, storePath)
}

// BuildContainer re-locks if no lock is present yet, then streams a
// container image archive into sink. Fails on non-Linux hosts.
func (e *ReadOnly) BuildContainer(ctx context.Context, sink io.Writer) error {
	lock, err := e.readLockfile()
	if err != nil {
		return err
	}
	if lock == nil {
		if _, err := e.Lock(ctx); err != nil {
			return err
		}
	}
	return builder.BuildContainer(ctx, e.dir, e.backends.Builder, e.lockfilePath(), sink)
}

// commitManifestPath runs the manifest-path transaction protocol:
// overwrite the sandbox's manifest.toml, resolve,
// then build.
func (c *core) commitManifestPath(ctx context.Context, newManifestText string, unsafe bool) (builder.StorePath, *lockfile.Lockfile, error) {
	var resultLock *lockfile.Lockfile

	storePath, err := c.engine.Run(ctx, c.dir, unsafe, func(ctx context.Context, sandboxDir string) (builder.StorePath, error) {
		rw := newReadWrite(sandboxDir, c.backends)

		if err := rw.updateManifest(newManifestText); err != nil {
			return "", err
		}

		m, err := manifest.Parse(newManifestText)
		if err != nil {
			return "", err
		}

		seed, err := rw.readLockfile()
		if err != nil {
			return "", err
		}
		seed = resolver.TieBreakSeed(m, seed)

		lock, err := resolver.Resolve(ctx, sandboxDir, m, rw.manifestPath(), rw.lockfilePath(), seed, rw.backends.Resolver)
		if err != nil {
			return "", err
		}
		resultLock = lock

		if err := rw.updateLockfile(lock); err != nil {
			return "", err
		}

		return builder.Build(ctx, sandboxDir, rw.backends.Builder, rw.lockfilePath())
	})

	return storePath, resultLock, err
}

// commitLockfilePath runs the lockfile-path transaction protocol: the
// caller already supplied an already-consistent lock, so only the build
// step runs.
func (c *core) commitLockfilePath(ctx context.Context, lock *lockfile.Lockfile) (builder.StorePath, error) {
	return c.engine.Run(ctx, c.dir, false, func(ctx context.Context, sandboxDir string) (builder.StorePath, error) {
		rw := newReadWrite(sandboxDir, c.backends)
		if err := rw.updateLockfile(lock); err != nil {
			return "", err
		}
		return builder.Build(ctx, sandboxDir, rw.backends.Builder, rw.lockfilePath())
	})
}

// stripPins removes the seed lock's packages matching any of ids (by
// install-ID or group), forcing them to be re-resolved. An empty ids
// drops the seed entirely, forcing full re-resolution.
func stripPins(seed *lockfile.Lockfile, ids []string) *lockfile.Lockfile {
	if seed == nil || seed.Kind != manifest.KindCatalog {
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	strip := make(map[string]bool, len(ids))
	for _, id := range ids {
		strip[id] = true
	}

	var kept []lockfile.LockedPackage
	for _, p := range seed.Packages {
		if strip[p.InstallID] || strip[p.Group] {
			continue
		}
		kept = append(kept, p)
	}
	return &lockfile.Lockfile{Kind: manifest.KindCatalog, ManifestCopy: seed.ManifestCopy, Packages: kept}
}

// diffDerivations returns the install-IDs whose derivation changed between
// oldLock and newLock.
func diffDerivations(oldLock, newLock *lockfile.Lockfile) []string {
	oldDerivs := map[string]map[string]bool{}
	if oldLock != nil {
		for _, p := range oldLock.Packages {
			if oldDerivs[p.InstallID] == nil {
				oldDerivs[p.InstallID] = map[string]bool{}
			}
			oldDerivs[p.InstallID][p.Derivation] = true
		}
	}

	seen := map[string]bool{}
	var changed []string
	if newLock != nil {
		for _, p := range newLock.Packages {
			if seen[p.InstallID] {
				continue
			}
			// An install-ID with no prior entry at all is newly locked, not
			// upgraded; only a differing derivation counts as a change.
			prior, ok := oldDerivs[p.InstallID]
			if !ok {
				continue
			}
			if !prior[p.Derivation] {
				changed = append(changed, p.InstallID)
				seen[p.InstallID] = true
			}
		}
	}
	return changed
}
