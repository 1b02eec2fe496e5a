package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat(" JSON "))
	assert.Equal(t, FormatCSV, ParseFormat("csv"))
	assert.Equal(t, FormatTable, ParseFormat(""))
	assert.Equal(t, FormatTable, ParseFormat("yaml"))
}

func TestIsStructuredFormat(t *testing.T) {
	assert.True(t, IsStructuredFormat(FormatJSON))
	assert.True(t, IsStructuredFormat(FormatCSV))
	assert.False(t, IsStructuredFormat(FormatTable))
}

func TestWriteJSONIndentsLikeTheLockfile(t *testing.T) {
	var buf strings.Builder
	f := NewFormatter(FormatJSON, &buf)

	err := f.WriteJSON([]map[string]string{{"install_id": "hello"}})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "  {")
	assert.Contains(t, buf.String(), `"install_id": "hello"`)
}

func TestWriteCSVHeaderAndRows(t *testing.T) {
	var buf strings.Builder
	f := NewFormatter(FormatCSV, &buf)

	err := f.WriteCSV(
		[]string{"install_id", "version"},
		[][]string{{"hello", "2.12.1"}, {"nodejs", "20.11"}},
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "install_id,version", lines[0])
	assert.Equal(t, "hello,2.12.1", lines[1])
}

func TestWriteCSVQuotesEmbeddedCommas(t *testing.T) {
	var buf strings.Builder
	f := NewFormatter(FormatCSV, &buf)

	err := f.WriteCSV([]string{"license"}, [][]string{{"MIT, BSD-3-Clause"}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"MIT, BSD-3-Clause"`)
}
