package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMergeAcceptsUncreatedAlwaysWins verifies an UNCREATED local slot
// accepts any incoming update regardless of clock or quality.
func TestMergeAcceptsUncreatedAlwaysWins(t *testing.T) {
	assert.True(t, mergeAccepts(StatusUncreated, 100, 100, 0, 0))
}

// TestMergeAcceptsHigherClockWins verifies a strictly newer clock is
// accepted even at lower quality.
func TestMergeAcceptsHigherClockWins(t *testing.T) {
	assert.True(t, mergeAccepts(StatusModified, 5, 10, 6, 0))
	assert.False(t, mergeAccepts(StatusModified, 5, 10, 4, 100))
}

// TestMergeAcceptsQualityTiebreak verifies equal clocks fall back to
// quality, with ties favoring the incoming update.
func TestMergeAcceptsQualityTiebreak(t *testing.T) {
	assert.True(t, mergeAccepts(StatusModified, 5, 3, 5, 3))
	assert.True(t, mergeAccepts(StatusModified, 5, 3, 5, 4))
	assert.False(t, mergeAccepts(StatusModified, 5, 3, 5, 2))
}

// TestUpdateRecordFromExternalRejectsStale verifies a stale external
// update is a no-op against a context (the external-merge no-op
// invariant).
func TestUpdateRecordFromExternalRejectsStale(t *testing.T) {
	ctx := NewContext()
	ctx.SetInteger("x", 1, DefaultUpdateSettings())
	ctx.SetClock(50)
	ctx.SetInteger("x", 2, DefaultUpdateSettings()) // stamps x at clock 51

	var stale KnowledgeRecord
	stale.SetInteger(999)
	stale.clock = 1
	stale.quality = 100

	applied := ctx.UpdateRecordFromExternal("x", stale, DefaultUpdateSettings())
	assert.Equal(t, 0, applied)
	assert.Equal(t, int64(2), ctx.Get("x").ToInteger())
}

// TestUpdateRecordFromExternalAdvancesContextClock verifies applying an
// external update whose clock exceeds the local context clock advances
// the context clock to match.
func TestUpdateRecordFromExternalAdvancesContextClock(t *testing.T) {
	ctx := NewContext()

	var incoming KnowledgeRecord
	incoming.SetInteger(1)
	incoming.clock = 500

	applied := ctx.UpdateRecordFromExternal("y", incoming, DefaultUpdateSettings())
	assert.Equal(t, 1, applied)
	assert.GreaterOrEqual(t, ctx.GetClock(), uint64(500))
}

// TestUpdateRecordFromExternalEmptyName verifies the empty-name guard.
func TestUpdateRecordFromExternalEmptyName(t *testing.T) {
	ctx := NewContext()
	var r KnowledgeRecord
	r.SetInteger(1)
	assert.Equal(t, -1, ctx.UpdateRecordFromExternal("", r, DefaultUpdateSettings()))
}
