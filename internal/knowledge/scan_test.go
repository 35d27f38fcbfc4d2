package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestToVectorSkipsMissingIndices verifies ToVector omits indices that
// were never written rather than inserting a placeholder.
func TestToVectorSkipsMissingIndices(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	ctx.SetInteger("item0", 10, settings)
	ctx.SetInteger("item2", 30, settings)

	got := ctx.ToVector("item", 0, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].ToInteger())
	assert.Equal(t, int64(30), got[1].ToInteger())
}

// TestToMapHierarchyScan verifies the delimiter-bounded next-key
// extraction used to browse a hierarchical namespace one level at a
// time.
func TestToMapHierarchyScan(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	ctx.SetInteger("robot.arm.x", 1, settings)
	ctx.SetInteger("robot.arm.y", 2, settings)
	ctx.SetInteger("robot.leg.x", 3, settings)

	_, nextKeys := ctx.ToMap("robot.", ".", "", true)
	assert.Equal(t, []string{"arm", "leg"}, nextKeys)
}

// TestToMapRangeFiltersByPrefix verifies only names sharing the prefix
// are returned.
func TestToMapRangeFiltersByPrefix(t *testing.T) {
	ctx := NewContext()
	settings := DefaultUpdateSettings()
	ctx.SetInteger("sensor.a", 1, settings)
	ctx.SetInteger("other.b", 2, settings)

	got := ctx.ToMapRange("sensor.")
	assert.Len(t, got, 1)
	_, ok := got["sensor.a"]
	assert.True(t, ok)
}
