package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSaveAndLoadContextRoundTrip verifies a full checkpoint survives a
// save/load cycle across every scalar and array type.
func TestSaveAndLoadContextRoundTrip(t *testing.T) {
	src := NewContext()
	settings := DefaultUpdateSettings()
	src.SetInteger("i", 42, settings)
	src.SetDouble("d", 3.25, settings)
	src.SetIntegerArray("ia", []int64{1, 2, 3}, settings)
	src.SetDoubleArray("da", []float64{1.5, 2.5}, settings)
	src.SetString("s", "hello", settings)
	src.SetText("t", "some text", settings)
	src.SetJPEG("j", []byte{0xff, 0xd8, 0xff, 0xd9}, settings)

	path := filepath.Join(t.TempDir(), "checkpoint.bin")
	n := src.SaveContext(path, "node-A")
	require.Greater(t, n, int64(0))

	dst := NewContext()
	id, read, code := dst.LoadContext(path, DefaultUpdateSettings())
	require.Equal(t, 0, code)
	assert.Equal(t, "node-A", id)
	assert.Equal(t, n, read)

	assert.Equal(t, int64(42), dst.Get("i").ToInteger())
	assert.Equal(t, 3.25, dst.Get("d").ToDouble())
	assert.Equal(t, "hello", dst.Get("s").ToString())

	arrBuf, ok := dst.Get("ia").ShareIntegers()
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, Value(arrBuf))
}

// TestSaveCheckpointOnlyIncludesModified verifies SaveCheckpoint writes
// exactly the current global modified-set, not the whole store.
func TestSaveCheckpointOnlyIncludesModified(t *testing.T) {
	src := NewContext()
	settings := DefaultUpdateSettings()
	src.SetInteger("tracked", 1, settings)
	src.ResetModified()
	src.SetInteger("also_tracked", 2, settings)

	path := filepath.Join(t.TempDir(), "partial.bin")
	require.Greater(t, src.SaveCheckpoint(path, "node-B"), int64(0))

	dst := NewContext()
	_, _, code := dst.LoadContext(path, DefaultUpdateSettings())
	require.Equal(t, 0, code)

	assert.False(t, dst.Exists("tracked"))
	assert.True(t, dst.Exists("also_tracked"))
}

// TestLoadContextRejectsCorruptChecksum verifies a tampered checkpoint
// file is rejected rather than partially applied.
func TestLoadContextRejectsCorruptChecksum(t *testing.T) {
	src := NewContext()
	src.SetInteger("x", 1, DefaultUpdateSettings())

	path := filepath.Join(t.TempDir(), "corrupt.bin")
	require.Greater(t, src.SaveContext(path, "node-C"), int64(0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	dst := NewContext()
	_, _, code := dst.LoadContext(path, DefaultUpdateSettings())
	assert.Equal(t, errIOFail, code)
}

// TestLoadContextMergesViaExternalRule verifies loading applies each
// entry through the same clock/quality merge rule as any other
// external update, rather than overwriting unconditionally.
func TestLoadContextMergesViaExternalRule(t *testing.T) {
	src := NewContext()
	src.SetInteger("x", 1, DefaultUpdateSettings())
	path := filepath.Join(t.TempDir(), "merge.bin")
	require.Greater(t, src.SaveContext(path, "node-D"), int64(0))

	dst := NewContext()
	dst.SetClock(1000)
	dst.SetInteger("x", 999, DefaultUpdateSettings())

	_, _, code := dst.LoadContext(path, DefaultUpdateSettings())
	require.Equal(t, 0, code)
	assert.Equal(t, int64(999), dst.Get("x").ToInteger())
}
