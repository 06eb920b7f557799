package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPIDFile(t *testing.T) *PIDFile {
	t.Helper()
	return NewPIDFile(filepath.Join(t.TempDir(), "clawdash-serve.pid"))
}

func TestWriteAndRead(t *testing.T) {
	p := testPIDFile(t)

	require.NoError(t, p.WritePID(12345))

	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)
}

func TestAcquire(t *testing.T) {
	p := testPIDFile(t)

	require.NoError(t, p.Acquire())

	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire_HeldByLiveProcess(t *testing.T) {
	p := testPIDFile(t)
	require.NoError(t, p.WritePID(os.Getpid()))

	err := p.Acquire()
	assert.ErrorContains(t, err, "already running")
}

func TestAcquire_OverwritesStaleFile(t *testing.T) {
	p := testPIDFile(t)
	// PID max on Linux defaults to 4194304; this is comfortably above it.
	require.NoError(t, p.WritePID(99999999))

	require.NoError(t, p.Acquire())

	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire_CreatesMissingDirectory(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "nested", "clawdash-serve.pid"))

	require.NoError(t, p.Acquire())

	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestRead_Missing(t *testing.T) {
	p := testPIDFile(t)

	_, err := p.Read()
	assert.Error(t, err)
}

func TestRead_Garbage(t *testing.T) {
	p := testPIDFile(t)
	require.NoError(t, os.WriteFile(p.Path, []byte("not-a-pid\n"), 0o644))

	_, err := p.Read()
	assert.ErrorContains(t, err, "invalid PID file content")
}

func TestRemove(t *testing.T) {
	p := testPIDFile(t)
	require.NoError(t, p.WritePID(1))
	require.NoError(t, p.Remove())

	_, err := p.Read()
	assert.Error(t, err)
}

func TestIsRunning_CurrentProcess(t *testing.T) {
	p := testPIDFile(t)
	require.NoError(t, p.WritePID(os.Getpid()))

	pid, running := p.IsRunning()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsRunning_NoFile(t *testing.T) {
	p := testPIDFile(t)

	_, running := p.IsRunning()
	assert.False(t, running)
}

func TestIsRunning_DeadProcess(t *testing.T) {
	p := testPIDFile(t)
	// PID max on Linux defaults to 4194304; this is comfortably above it.
	require.NoError(t, p.WritePID(99999999))

	_, running := p.IsRunning()
	assert.False(t, running)
}
