package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyOpaque(t *testing.T) {
	m, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, KindLegacy, m.Kind)
	assert.Equal(t, "", m.Raw)

	m2, err := Parse("version = 0\n[install]\nhello = {}\n")
	require.NoError(t, err)
	assert.Equal(t, KindLegacy, m2.Kind)
	assert.Nil(t, m2.Install, "legacy manifests are never decoded beyond the version probe")
}

func TestParseCatalog(t *testing.T) {
	text := `version = 1

[install]
hello.pkg-path = "hello"

[options]
systems = ["x86_64-linux"]

[vars]
FOO = "bar"
`
	m, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, KindCatalog, m.Kind)
	require.Contains(t, m.Install, "hello")
	assert.Equal(t, "hello", m.Install["hello"].PkgPath)
	assert.Equal(t, []string{"x86_64-linux"}, m.Options.Systems)
	assert.Equal(t, "bar", m.Vars["FOO"])
}

func TestParseUnsupportedVersion(t *testing.T) {
	_, err := Parse("version = 2\n")
	require.Error(t, err)
}

func TestDescriptorEquivalent(t *testing.T) {
	a := Descriptor{PkgPath: "hello", Version: "1.0"}
	b := Descriptor{PkgPath: "hello", Version: "1.0"}
	c := Descriptor{PkgPath: "hello", Version: "2.0"}
	assert.True(t, a.Equivalent(b))
	assert.False(t, a.Equivalent(c))
}

func TestRenderRoundTripsCatalog(t *testing.T) {
	m := &Manifest{
		Kind:    KindCatalog,
		Install: map[string]Descriptor{"hello": {PkgPath: "hello"}},
		Options: Options{Systems: []string{"x86_64-linux"}},
	}
	out, err := m.Render()
	require.NoError(t, err)

	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, KindCatalog, reparsed.Kind)
	assert.Equal(t, "hello", reparsed.Install["hello"].PkgPath)
}

func TestRenderLegacyReturnsRawVerbatim(t *testing.T) {
	m := &Manifest{Kind: KindLegacy, Raw: "arbitrary legacy text\n"}
	out, err := m.Render()
	require.NoError(t, err)
	assert.Equal(t, m.Raw, out)
}
