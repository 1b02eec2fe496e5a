package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteProgressForwardsBytesUntouched(t *testing.T) {
	var dest, status bytes.Buffer
	p := NewByteProgress(&dest, &status, "streaming image")

	payload := []byte("tar archive bytes")
	n, err := p.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, dest.Bytes())
	assert.Equal(t, int64(len(payload)), p.Written())
}

func TestByteProgressThrottlesStatusUpdates(t *testing.T) {
	var dest, status bytes.Buffer
	p := NewByteProgress(&dest, &status, "streaming image")

	// Under a MiB: no status render yet.
	_, err := p.Write(make([]byte, 512))
	require.NoError(t, err)
	assert.Empty(t, status.String())

	// Crossing the MiB boundary renders once.
	_, err = p.Write(make([]byte, renderStep))
	require.NoError(t, err)
	assert.Contains(t, status.String(), "streaming image: 1.0 MiB")
}

func TestByteProgressDoneRendersFinalCount(t *testing.T) {
	var dest, status bytes.Buffer
	p := NewByteProgress(&dest, &status, "streaming image")

	_, err := p.Write([]byte("abc"))
	require.NoError(t, err)
	p.Done()

	assert.Contains(t, status.String(), "streaming image: 3 B")
	assert.True(t, strings.HasSuffix(status.String(), "\n"))
}

func TestByteProgressDisabledStaysSilent(t *testing.T) {
	var dest, status bytes.Buffer
	p := NewByteProgress(&dest, &status, "streaming image")
	p.SetEnabled(false)

	_, err := p.Write(make([]byte, 2*renderStep))
	require.NoError(t, err)
	p.Done()

	assert.Empty(t, status.String())
	assert.Equal(t, 2*renderStep, dest.Len())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(3<<19))
	assert.Equal(t, "2.0 GiB", formatBytes(2<<30))
}
