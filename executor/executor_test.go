package executor

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readEventually(t *testing.T, path, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, err := ioutil.ReadFile(path)
		return err == nil && string(got) == want
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLaunchRedirectsOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.output")

	err := New(Config{Dir: dir}).Launch("echo hello world", logPath, logPath)
	require.NoError(t, err)
	readEventually(t, logPath, "hello world\n")
}

func TestLaunchTruncatesExistingLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.output")
	require.NoError(t, ioutil.WriteFile(logPath, []byte("stale output from a previous run\n"), 0644))

	require.NoError(t, New(Config{Dir: dir}).Launch("echo fresh", logPath, logPath))
	readEventually(t, logPath, "fresh\n")
}

func TestLaunchSeparateStderr(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "both.sh")
	require.NoError(t, ioutil.WriteFile(script, []byte("echo out\necho err 1>&2\n"), 0755))
	outPath := filepath.Join(dir, "out.log")
	errPath := filepath.Join(dir, "err.log")

	require.NoError(t, New(Config{Dir: dir}).Launch("sh both.sh", outPath, errPath))
	readEventually(t, outPath, "out\n")
	readEventually(t, errPath, "err\n")
}

func TestLaunchDoesNotWait(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "sleep.output")

	start := time.Now()
	require.NoError(t, New(Config{Dir: dir}).Launch("sleep 2", logPath, logPath))
	require.Less(t, int64(time.Since(start)), int64(time.Second))
}

func TestLaunchMissingExecutable(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "missing.output")

	err := New(Config{Dir: dir}).Launch("definitely-not-a-real-binary-4242 arg", logPath, logPath)
	require.ErrorIs(t, err, ErrLaunchFailure)
}

func TestLaunchEmptyCommand(t *testing.T) {
	err := New(Config{}).Launch("   ", os.DevNull, os.DevNull)
	require.ErrorIs(t, err, ErrLaunchFailure)
}

func TestLaunchUnwritableLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "no-such-dir", "run.output")
	err := New(Config{}).Launch("echo hi", logPath, logPath)
	require.ErrorIs(t, err, ErrLaunchFailure)
}
