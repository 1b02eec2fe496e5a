// Package lockfile models manifest.lock: a tagged variant mirroring the
// manifest's {Legacy, Catalog} split. The Catalog variant
// carries one fully-resolved LockedPackage per installed package per target
// system.
package lockfile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/manifest"
	"golang.org/x/mod/semver"
)

// LockedPackage is one resolved pin, grounded on the per-system package
// record other declarative package managers in this space use (e.g. a
// devbox-style lock entry's Resolved/Source/per-system Outputs), generalized
// to the full field set a lockfile needs to carry.
type LockedPackage struct {
	InstallID  string            `json:"install_id"`
	AttrPath   string            `json:"attr_path"`
	Derivation string            `json:"derivation"`
	System     string            `json:"system"`
	Group      string            `json:"group,omitempty"`
	Broken     bool              `json:"broken,omitempty"`
	License    *string           `json:"license,omitempty"`
	Outputs    map[string]string `json:"outputs,omitempty"`
	Pname      string            `json:"pname"`
	Version    string            `json:"version"`
	LockedURL  string            `json:"locked_url,omitempty"`
	Rev        string            `json:"rev,omitempty"`
	RevCount   int               `json:"rev_count,omitempty"`
	RevDate    string            `json:"rev_date,omitempty"`
	ScrapeDate string            `json:"scrape_date,omitempty"`
	Unfree     *bool             `json:"unfree,omitempty"`
}

// catalogBody is the JSON shape of a Catalog lockfile.
type catalogBody struct {
	Version  int             `json:"version"`
	Manifest json.RawMessage `json:"manifest"`
	Packages []LockedPackage `json:"packages"`
}

// Lockfile is the tagged {Legacy, Catalog} variant.
type Lockfile struct {
	Kind manifest.Kind

	// Raw holds the Legacy variant's opaque JSON blob, produced verbatim by
	// the legacy backend and never interpreted by the core.
	Raw json.RawMessage

	// ManifestCopy is the Catalog variant's embedded copy of the manifest
	// that produced it.
	ManifestCopy json.RawMessage
	Packages     []LockedPackage
}

type lockVersionProbe struct {
	Version *int `json:"version"`
}

// Parse decodes lockfile JSON into its tagged variant. A Legacy lock has no
// top-level "version" key (the legacy backend's own JSON has whatever shape
// it wants); a Catalog lock always carries version = 1.
func Parse(data []byte) (*Lockfile, error) {
	var probe lockVersionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errkind.Wrap(errkind.KindDeserializeManifest, err)
	}

	if probe.Version == nil {
		raw := append(json.RawMessage(nil), data...)
		return &Lockfile{Kind: manifest.KindLegacy, Raw: raw}, nil
	}
	if *probe.Version != 1 {
		return nil, errkind.Wrap(errkind.KindDeserializeManifest,
			fmt.Errorf("unsupported lockfile version %d", *probe.Version))
	}

	var body catalogBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, errkind.Wrap(errkind.KindDeserializeManifest, err)
	}

	return &Lockfile{
		Kind:         manifest.KindCatalog,
		ManifestCopy: body.Manifest,
		Packages:     body.Packages,
	}, nil
}

// Marshal pretty-prints the lockfile to JSON with 2-space indent, for
// ordered, human-diffable output.
func (l *Lockfile) Marshal() ([]byte, error) {
	if l.Kind == manifest.KindLegacy {
		var buf []byte
		buf = append(buf, l.Raw...)
		return buf, nil
	}

	body := catalogBody{
		Version:  1,
		Manifest: l.ManifestCopy,
		Packages: l.Packages,
	}
	return json.MarshalIndent(body, "", "  ")
}

// InstallIDs returns the set of distinct install-IDs present in the lock's
// packages, against which a caller can check that every manifest install-ID
// appears in the lock.
func (l *Lockfile) InstallIDs() map[string]bool {
	ids := make(map[string]bool, len(l.Packages))
	for _, p := range l.Packages {
		ids[p.InstallID] = true
	}
	return ids
}

// PackagesFor returns every LockedPackage entry for the given install-ID
// (one per target system).
func (l *Lockfile) PackagesFor(installID string) []LockedPackage {
	var out []LockedPackage
	for _, p := range l.Packages {
		if p.InstallID == installID {
			out = append(out, p)
		}
	}
	return out
}

// SortPackages orders pkgs by install-ID, then by version: semver-aware
// where a version parses as one, falling back to lexical comparison for the
// commit-hash and date-stamped versions the catalog backend also produces.
// Used by the CLI's 'list' output so repeated runs are stable and newer
// versions of the same package sort adjacent to each other.
func SortPackages(pkgs []LockedPackage) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].InstallID != pkgs[j].InstallID {
			return pkgs[i].InstallID < pkgs[j].InstallID
		}
		return compareVersions(pkgs[i].Version, pkgs[j].Version) < 0
	})
}

func compareVersions(a, b string) int {
	va, vb := canonicalSemver(a), canonicalSemver(b)
	if va != "" && vb != "" {
		return semver.Compare(va, vb)
	}
	return strings.Compare(a, b)
}

// canonicalSemver returns the "vX.Y.Z" form semver.Compare requires, or ""
// if the version string isn't valid semver once a leading "v" is assumed.
func canonicalSemver(v string) string {
	candidate := v
	if !strings.HasPrefix(candidate, "v") {
		candidate = "v" + candidate
	}
	if semver.IsValid(candidate) {
		return candidate
	}
	return ""
}
