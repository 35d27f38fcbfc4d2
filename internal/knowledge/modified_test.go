package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyModifiedSkipsLocalAndUncreated verifies ApplyModified only
// re-inserts live, non-local variables into the global modified-set.
func TestApplyModifiedSkipsLocalAndUncreated(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	settings.AlwaysDisseminate = false // don't auto-track, so we can test the forced re-insert

	ctx.SetInteger("a", 1, settings)
	ctx.SetInteger(".b", 1, settings)
	require.Empty(t, ctx.GetModifieds())

	ctx.ApplyModified()

	modified := ctx.GetModifieds()
	_, hasA := modified["a"]
	assert.True(t, hasA)
	_, hasB := modified[".b"]
	assert.False(t, hasB)
}

// TestMarkModifiedNameRequiresExistingVariable verifies marking an
// absent name is a silent no-op rather than creating it.
func TestMarkModifiedNameRequiresExistingVariable(t *testing.T) {
	ctx := NewContext()
	ctx.MarkModifiedName("ghost")
	assert.False(t, ctx.Exists("ghost"))
	assert.Empty(t, ctx.GetModifieds())
}

// TestDebugModifiedsIsSortedAndDeterministic verifies the debug dump
// lists entries in name order regardless of insertion order.
func TestDebugModifiedsIsSortedAndDeterministic(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	ctx.SetInteger("zebra", 1, settings)
	ctx.SetInteger("apple", 2, settings)

	assert.Equal(t, "apple=2;zebra=1;", ctx.DebugModifieds())
}

// TestResetModifiedNameLeavesOthersIntact verifies clearing one entry
// from the modified-set does not disturb siblings, matching the
// per-name retry semantics a replication drain relies on.
func TestResetModifiedNameLeavesOthersIntact(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	ctx.SetInteger("keep", 1, settings)
	ctx.SetInteger("drop", 1, settings)

	ctx.ResetModifiedName("drop")

	modified := ctx.GetModifieds()
	_, hasKeep := modified["keep"]
	assert.True(t, hasKeep)
	_, hasDrop := modified["drop"]
	assert.False(t, hasDrop)
}
