package subprocess

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell for the fixture")
	}
	res, err := Run(context.Background(), "", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(res.Stdout))
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell for the fixture")
	}
	res, err := Run(context.Background(), "", "sh", "-c", "echo oops >&2; exit 7")
	require.Error(t, err)
	assert.Equal(t, 7, res.ExitCode)
	assert.Equal(t, "oops", res.CombinedOutput())
}

func TestRunWithTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell for the fixture")
	}
	_, err := RunWithTimeout(context.Background(), 10*time.Millisecond, "", "sleep", "1")
	require.Error(t, err)
}

func TestRunEmptyArgv(t *testing.T) {
	_, err := Run(context.Background(), "")
	require.Error(t, err)
}

func TestStreamWritesStdoutDirectly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell for the fixture")
	}
	var buf bytes.Buffer
	exitCode, err := Stream(context.Background(), "", &buf, "echo", "archive-bytes")
	require.NoError(t, err)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "archive-bytes\n", buf.String())
}

func TestStreamNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell for the fixture")
	}
	var buf bytes.Buffer
	exitCode, err := Stream(context.Background(), "", &buf, "sh", "-c", "exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode)
}
