package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPackagesTableColumns(t *testing.T) {
	table := NewPackagesTable(false)
	require.Equal(t, 6, table.ColumnCount())

	var buf strings.Builder
	table.Fprint(&buf)
	header := buf.String()
	assert.Contains(t, header, "INSTALL ID")
	assert.Contains(t, header, "DERIVATION")
	assert.NotContains(t, header, "GROUP")
}

func TestNewPackagesTableShowsGroupColumnWhenRequested(t *testing.T) {
	table := NewPackagesTable(true)

	var buf strings.Builder
	table.Fprint(&buf)
	assert.Contains(t, buf.String(), "GROUP")
}

func TestNewChangedPackagesTableSingleColumn(t *testing.T) {
	table := NewChangedPackagesTable()
	require.Equal(t, 1, table.ColumnCount())

	row := table.FormatRow("nodejs")
	assert.Contains(t, row, "nodejs")
}
