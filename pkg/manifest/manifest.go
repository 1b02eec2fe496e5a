// Package manifest models the human-edited manifest.toml: a tagged variant
// over {Legacy, Catalog} carrying a declared version and, for Catalog
// manifests, an install table, options, hook, and vars.
package manifest

import (
	"fmt"

	"github.com/envkit/core/pkg/errkind"
	toml "github.com/pelletier/go-toml/v2"
)

// Kind tags which variant a Manifest or Lockfile is.
type Kind int

const (
	// KindLegacy manifests have version absent or 0 and are opaque to the core.
	KindLegacy Kind = iota
	// KindCatalog manifests declare version = 1 and are fully modeled.
	KindCatalog
)

func (k Kind) String() string {
	if k == KindCatalog {
		return "catalog"
	}
	return "legacy"
}

// Descriptor is one entry of the install table: what the user asked for.
type Descriptor struct {
	PkgPath  string   `toml:"pkg-path,omitempty"`
	PkgGroup string   `toml:"pkg-group,omitempty"`
	Version  string   `toml:"version,omitempty"`
	Systems  []string `toml:"systems,omitempty"`
	Priority *int     `toml:"priority,omitempty"`
}

// Equivalent reports whether two descriptors request the same package,
// ignoring field order. The editor uses it to detect "already installed".
func (d Descriptor) Equivalent(o Descriptor) bool {
	if d.PkgPath != o.PkgPath || d.PkgGroup != o.PkgGroup || d.Version != o.Version {
		return false
	}
	if (d.Priority == nil) != (o.Priority == nil) {
		return false
	}
	if d.Priority != nil && *d.Priority != *o.Priority {
		return false
	}
	if len(d.Systems) != len(o.Systems) {
		return false
	}
	for i := range d.Systems {
		if d.Systems[i] != o.Systems[i] {
			return false
		}
	}
	return true
}

// Options is the manifest's [options] table.
type Options struct {
	Systems []string `toml:"systems,omitempty"`
}

// Hook is the manifest's optional [hook] table.
type Hook struct {
	OnActivate string `toml:"on-activate,omitempty"`
}

// catalogBody is the part of a Catalog manifest go-toml/v2 can decode
// directly; Manifest wraps it alongside the variant tag and raw text.
type catalogBody struct {
	Version int                   `toml:"version"`
	Install map[string]Descriptor `toml:"install,omitempty"`
	Options Options               `toml:"options,omitempty"`
	Hook    *Hook                 `toml:"hook,omitempty"`
	Vars    map[string]string     `toml:"vars,omitempty"`
}

// Manifest is the tagged {Legacy, Catalog} variant.
type Manifest struct {
	Kind Kind

	// Raw is the exact source text. It is authoritative for Legacy manifests
	// (the core never interprets their contents beyond the version probe)
	// and is kept for Catalog manifests too so round-tripping via Render
	// is only exercised when a caller actually needs a re-encode.
	Raw string

	Install map[string]Descriptor
	Options Options
	Hook    *Hook
	Vars    map[string]string
}

// versionProbe decodes only the version field, the one thing the core
// inspects about every manifest regardless of variant.
type versionProbe struct {
	Version int `toml:"version"`
}

// Parse decodes manifest text into its tagged variant. Legacy manifests
// (version absent or 0) are stored as opaque raw text; Catalog manifests
// (version = 1) are fully decoded.
func Parse(text string) (*Manifest, error) {
	var probe versionProbe
	if err := toml.Unmarshal([]byte(text), &probe); err != nil {
		return nil, errkind.Wrap(errkind.KindDeserializeManifest, err)
	}

	if probe.Version == 0 {
		return &Manifest{Kind: KindLegacy, Raw: text}, nil
	}
	if probe.Version != 1 {
		return nil, errkind.Wrap(errkind.KindDeserializeManifest,
			fmt.Errorf("unsupported manifest version %d", probe.Version))
	}

	var body catalogBody
	if err := toml.Unmarshal([]byte(text), &body); err != nil {
		return nil, errkind.Wrap(errkind.KindDeserializeManifest, err)
	}

	return &Manifest{
		Kind:    KindCatalog,
		Raw:     text,
		Install: body.Install,
		Options: body.Options,
		Hook:    body.Hook,
		Vars:    body.Vars,
	}, nil
}

// Render re-encodes a Catalog manifest from its parsed fields. Legacy
// manifests render their stored raw text unchanged, since the core never
// reconstructs a Legacy manifest's structure.
func (m *Manifest) Render() (string, error) {
	if m.Kind == KindLegacy {
		return m.Raw, nil
	}

	body := catalogBody{
		Version: 1,
		Install: m.Install,
		Options: m.Options,
		Hook:    m.Hook,
		Vars:    m.Vars,
	}
	out, err := toml.Marshal(body)
	if err != nil {
		return "", errkind.Wrap(errkind.KindUpdateManifest, err)
	}
	return string(out), nil
}

// SameVariant reports whether m is tagged with the given Kind. The
// resolver facade's seed-lock tie-break uses it to detect a manifest
// migrated between variants.
func (m *Manifest) SameVariant(k Kind) bool { return m.Kind == k }
