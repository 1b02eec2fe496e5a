// Package resolver implements the resolver facade: a single
// blocking resolve(manifest, seed_lock?) entry point polymorphic over the
// legacy subprocess backend and the in-process catalog client, modeled as a
// tagged variant at the call site rather than virtual dispatch
// since the two backends differ in error shape and seed semantics.
package resolver

import (
	"context"
	"encoding/json"

	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/lockfile"
	"github.com/envkit/core/pkg/manifest"
	"github.com/envkit/core/pkg/subprocess"
	"github.com/envkit/core/pkg/verbose"
)

// ResolvedPackageGroup is one group's worth of resolved descriptors, the
// shape the catalog client contract returns.
type ResolvedPackageGroup struct {
	Group    string
	Packages []lockfile.LockedPackage
}

// CatalogClient is the in-process contract the core consumes but does not
// implement: resolve(manifest_groups) -> list<ResolvedPackageGroup>.
type CatalogClient interface {
	Resolve(ctx context.Context, groups []string) ([]ResolvedPackageGroup, error)
}

// Backend bundles the two external collaborators a facade call may need.
// Either field may be nil; which one is used is determined by the
// manifest's variant, never by the caller.
type Backend struct {
	// BinaryPath is the legacy package-database binary invoked as a subprocess.
	BinaryPath string
	// GlobalManifestPath is passed as --global-manifest to every legacy invocation.
	GlobalManifestPath string
	// Catalog is the in-process client used for Catalog manifests. A nil
	// Catalog with a Catalog manifest fails fast with CatalogClientMissing.
	Catalog CatalogClient
}

// Resolve runs the resolver facade's capability: given a manifest and an
// optional seed lock, produce a new lock. It blocks synchronously in the
// caller's goroutine even when the catalog path is internally asynchronous:
// the core never leaks async-ness into its API.
func Resolve(ctx context.Context, dir string, m *manifest.Manifest, manifestPath, lockPath string, seed *lockfile.Lockfile, backend Backend) (*lockfile.Lockfile, error) {
	if m.Kind == manifest.KindLegacy {
		return resolveLegacy(ctx, dir, manifestPath, lockPath, backend)
	}
	return resolveCatalog(ctx, m, seed, backend)
}

// resolveLegacy invokes the external package-database binary's "manifest
// lock" subcommand per the subprocess protocol.
func resolveLegacy(ctx context.Context, dir, manifestPath, lockPath string, backend Backend) (*lockfile.Lockfile, error) {
	argv := []string{
		backend.BinaryPath, "manifest", "lock",
		"--ga-registry",
		"--global-manifest", backend.GlobalManifestPath,
		"--manifest", manifestPath,
	}
	if lockPath != "" {
		argv = append(argv, "--lockfile", lockPath)
	}

	res, err := subprocess.Run(ctx, dir, argv...)
	if err != nil && res.ExitCode <= 0 {
		return nil, errkind.Wrap(errkind.KindLockedManifest, err)
	}
	if res.ExitCode != 0 {
		return nil, errkind.Wrap(errkind.KindLockedManifest, &errkind.BackendError{
			Command:  argv,
			ExitCode: res.ExitCode,
			Message:  res.CombinedOutput(),
		})
	}

	lock, err := lockfile.Parse(res.Stdout)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindLockedManifest, err)
	}
	return lock, nil
}

// resolveCatalog drives the in-process async catalog client to completion,
// reusing pins from the seed lock whose descriptor is unchanged and sending
// only unpinned or changed descriptors to the client.
func resolveCatalog(ctx context.Context, m *manifest.Manifest, seed *lockfile.Lockfile, backend Backend) (*lockfile.Lockfile, error) {
	if backend.Catalog == nil {
		return nil, errkind.New(errkind.KindCatalogClientMissing)
	}

	reused, toResolve := splitSeed(m, seed)

	var groups []string
	for group := range toResolve {
		groups = append(groups, group)
	}

	packages := append([]lockfile.LockedPackage(nil), reused...)
	if len(groups) > 0 {
		resolved, err := backend.Catalog.Resolve(ctx, groups)
		if err != nil {
			return nil, errkind.Wrap(errkind.KindLockedManifest, err)
		}
		for _, g := range resolved {
			packages = append(packages, g.Packages...)
		}
	}

	manifestCopy, err := json.Marshal(m)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindLockedManifest, err)
	}

	return &lockfile.Lockfile{
		Kind:         manifest.KindCatalog,
		ManifestCopy: manifestCopy,
		Packages:     packages,
	}, nil
}

// splitSeed partitions the manifest's install-IDs into those whose seed pin
// can be reused verbatim (descriptor unchanged) and those whose pkg-group
// must be sent to the catalog client for re-resolution.
func splitSeed(m *manifest.Manifest, seed *lockfile.Lockfile) (reused []lockfile.LockedPackage, toResolve map[string]bool) {
	toResolve = map[string]bool{}

	if seed == nil || seed.Kind != manifest.KindCatalog {
		for id, d := range m.Install {
			toResolve[groupOf(id, d)] = true
		}
		return nil, toResolve
	}

	var seedManifest manifest.Manifest
	seedUnchanged := json.Unmarshal(seed.ManifestCopy, &seedManifest) == nil

	for id, d := range m.Install {
		if seedUnchanged {
			// An unchanged descriptor only counts as pinned when the seed
			// actually carries packages for it; an upgrade strips pins
			// without touching the embedded manifest copy.
			if prior, ok := seedManifest.Install[id]; ok && prior.Equivalent(d) {
				if pkgs := seed.PackagesFor(id); len(pkgs) > 0 {
					reused = append(reused, pkgs...)
					continue
				}
			}
		}
		toResolve[groupOf(id, d)] = true
	}
	return reused, toResolve
}

func groupOf(installID string, d manifest.Descriptor) string {
	if d.PkgGroup != "" {
		return d.PkgGroup
	}
	return installID
}

// TieBreakSeed implements the variant-mismatch tie-break: if
// the on-disk lock's variant disagrees with the manifest's, the lock is
// ignored (logged via verbose.Printf) and resolution proceeds without a seed.
func TieBreakSeed(m *manifest.Manifest, seed *lockfile.Lockfile) *lockfile.Lockfile {
	if seed == nil {
		return nil
	}
	if !m.SameVariant(seed.Kind) {
		verbose.Printf("lock variant %s disagrees with manifest variant %s; ignoring seed\n", seed.Kind, m.Kind)
		return nil
	}
	return seed
}
