package knowledge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetUncreatedIsNeverAnError verifies reading an absent name yields
// an UNCREATED record rather than a Go error.
func TestGetUncreatedIsNeverAnError(t *testing.T) {
	ctx := NewContext()
	r := ctx.Get("nope")
	assert.Equal(t, Uninitialized, r.Type())
	assert.Equal(t, StatusUncreated, r.Status())
	assert.False(t, ctx.Exists("nope"))
}

// TestWriteMonotonicClock verifies each write on a name stamps a
// strictly increasing clock (the monotonic-write invariant).
func TestWriteMonotonicClock(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()

	ctx.SetInteger("x", 1, settings)
	first := ctx.GetVariableClock("x")

	ctx.SetInteger("x", 2, settings)
	second := ctx.GetVariableClock("x")

	assert.Greater(t, second, first)
}

// TestLocalNamesAreExcludedFromGlobalModified verifies a '.'-prefixed
// name is tracked only in the local modified-set.
func TestLocalNamesAreExcludedFromGlobalModified(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()

	ctx.SetInteger(".private", 1, settings)
	ctx.SetInteger("public", 1, settings)

	global := ctx.GetModifieds()
	local := ctx.GetLocalModified()

	_, inGlobal := global[".private"]
	assert.False(t, inGlobal)
	_, inLocal := local[".private"]
	assert.True(t, inLocal)
	_, publicInGlobal := global["public"]
	assert.True(t, publicInGlobal)
}

// TestResetModifiedEmptiesTheSet verifies ResetModified drops every
// entry without touching the underlying store.
func TestResetModifiedEmptiesTheSet(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	ctx.SetInteger("a", 1, settings)

	require.Len(t, ctx.GetModifieds(), 1)
	ctx.ResetModified()
	assert.Empty(t, ctx.GetModifieds())
	assert.True(t, ctx.Exists("a"))
}

// TestIncAndDecOnAbsentName verifies Inc/Dec on a never-written name
// creates an INTEGER 1 / -1 rather than failing.
func TestIncAndDecOnAbsentName(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()

	ctx.Inc("counter", settings)
	assert.Equal(t, int64(1), ctx.Get("counter").ToInteger())

	ctx.Dec("counter", settings)
	ctx.Dec("counter", settings)
	assert.Equal(t, int64(-1), ctx.Get("counter").ToInteger())
}

// TestGetPreservesPayloadSharing verifies two Get calls on an array
// variable observe the same underlying buffer until one of them writes.
func TestGetPreservesPayloadSharing(t *testing.T) {
	ctx := NewContext()
	ctx.SetIntegerArray("arr", []int64{1, 2, 3}, DefaultUpdateSettings())

	a := ctx.Get("arr")
	b := ctx.Get("arr")

	bufA, ok := a.ShareIntegers()
	require.True(t, ok)
	bufB, ok := b.ShareIntegers()
	require.True(t, ok)
	assert.Same(t, bufA, bufB)
}

// TestWaitForChangeWakesOnSetChanged verifies a goroutine blocked in
// WaitForChange is released by a concurrent SetChanged.
func TestWaitForChangeWakesOnSetChanged(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ctx.WaitForChange(false)
	}()

	// give the goroutine a moment to block before signalling.
	time.Sleep(20 * time.Millisecond)
	ctx.SetChanged()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForChange did not wake on SetChanged")
	}
}

// TestExpandStatementInnermostFirst verifies nested {..} references
// expand from the innermost brace outward.
func TestExpandStatementInnermostFirst(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	ctx.SetString("inner", "x", settings)
	ctx.SetString("x", "resolved", settings)

	got := ctx.ExpandStatement("value={{inner}}")
	assert.Equal(t, "value=resolved", got)
}

// TestSetQualityDoesNotAdvanceClock verifies quality is metadata: it
// must not perturb the record's Lamport stamp.
func TestSetQualityDoesNotAdvanceClock(t *testing.T) {
	ctx := NewContext()
	ctx.SetInteger("q", 1, DefaultUpdateSettings())
	before := ctx.GetVariableClock("q")

	ctx.SetQuality("q", 5)
	assert.Equal(t, before, ctx.GetVariableClock("q"))
	assert.Equal(t, uint32(5), ctx.GetQuality("q"))
}
