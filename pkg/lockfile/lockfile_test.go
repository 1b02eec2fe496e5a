package lockfile

import (
	"testing"

	"github.com/envkit/core/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyOpaque(t *testing.T) {
	l, err := Parse([]byte(`{"lockfile-version":1,"foo":"bar"}`))
	require.NoError(t, err)
	assert.Equal(t, manifest.KindLegacy, l.Kind)

	out, err := l.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"lockfile-version":1,"foo":"bar"}`, string(out))
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"manifest": {"version":1},
		"packages": [
			{"install_id":"hello","attr_path":"hello","derivation":"/nix/store/abc-hello","system":"x86_64-linux","pname":"hello","version":"2.12"}
		]
	}`)
	l, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, manifest.KindCatalog, l.Kind)
	require.Len(t, l.Packages, 1)
	assert.Equal(t, "hello", l.Packages[0].InstallID)
	assert.True(t, l.InstallIDs()["hello"])
	assert.Len(t, l.PackagesFor("hello"), 1)
	assert.Len(t, l.PackagesFor("missing"), 0)
}

func TestSortPackagesOrdersByIDThenSemver(t *testing.T) {
	pkgs := []LockedPackage{
		{InstallID: "hello", Version: "1.2.0"},
		{InstallID: "foo", Version: "2.0.0"},
		{InstallID: "hello", Version: "1.10.0"},
		{InstallID: "hello", Version: "1.2.0-unstable-2024-01-01"},
	}
	SortPackages(pkgs)

	require.Equal(t, "foo", pkgs[0].InstallID)
	require.Equal(t, []string{"1.2.0-unstable-2024-01-01", "1.2.0", "1.10.0"},
		[]string{pkgs[1].Version, pkgs[2].Version, pkgs[3].Version})
}

func TestSortPackagesFallsBackToLexicalForNonSemver(t *testing.T) {
	pkgs := []LockedPackage{
		{InstallID: "hello", Version: "unstable-2024-02-01"},
		{InstallID: "hello", Version: "unstable-2024-01-01"},
	}
	SortPackages(pkgs)
	assert.Equal(t, "unstable-2024-01-01", pkgs[0].Version)
}

func TestMarshalIndented(t *testing.T) {
	l := &Lockfile{
		Kind: manifest.KindCatalog,
		Packages: []LockedPackage{
			{InstallID: "hello", Pname: "hello", Version: "2.12", System: "x86_64-linux", Derivation: "/nix/store/abc"},
		},
	}
	out, err := l.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  \"version\"")
}
