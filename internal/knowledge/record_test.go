package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordConversionTable checks the ToInteger/ToDouble/ToString
// conversions across every scalar type.
func TestRecordConversionTable(t *testing.T) {
	var r KnowledgeRecord
	r.SetInteger(7)
	assert.Equal(t, int64(7), r.ToInteger())
	assert.Equal(t, float64(7), r.ToDouble())
	assert.Equal(t, "7", r.ToString())

	r.SetDouble(3.5)
	assert.Equal(t, int64(3), r.ToInteger())
	assert.Equal(t, "3.5", r.ToString())

	r.SetString("42")
	assert.Equal(t, int64(42), r.ToInteger())
	assert.Equal(t, float64(42), r.ToDouble())

	r.SetString("not a number")
	assert.Equal(t, int64(0), r.ToInteger())
}

// TestSharedStringCopyOnWrite verifies that two records built via
// EmplaceSharedString over one buffer both read its value, and that
// overwriting one with SetString leaves the other unchanged.
func TestSharedStringCopyOnWrite(t *testing.T) {
	buf := NewSharedString("hello")

	var a, b KnowledgeRecord
	a.EmplaceSharedString(buf)
	b.EmplaceSharedString(buf)

	assert.Equal(t, "hello", a.ToString())
	assert.Equal(t, "hello", b.ToString())

	// mutating through a fresh SetString on a breaks the sharing; b is
	// unaffected because strings are immutable in Go.
	a.SetString("changed")
	assert.Equal(t, "hello", b.ToString())
}

// TestSharedIntegerArrayEnsuresPrivateCopy verifies SetIndex clones a
// shared integer array before mutating it, so sibling holders of the
// same buffer never observe the write.
func TestSharedIntegerArrayEnsuresPrivateCopy(t *testing.T) {
	buf := NewSharedIntegers(3, 0)

	var a, b KnowledgeRecord
	a.EmplaceSharedIntegers(buf)
	b.EmplaceSharedIntegers(buf)

	a.SetIndex(1, 99)

	got, ok := a.ShareIntegers()
	require.True(t, ok)
	assert.Equal(t, []int64{0, 99, 0}, Value(got))

	otherBuf, ok := b.ShareIntegers()
	require.True(t, ok)
	assert.Equal(t, []int64{0, 0, 0}, Value(otherBuf))
}

// TestRetrieveIndexOutOfRange verifies out-of-range access on an array
// record returns an UNINITIALIZED record instead of panicking.
func TestRetrieveIndexOutOfRange(t *testing.T) {
	var r KnowledgeRecord
	r.SetIntegerArray([]int64{1, 2, 3})

	out := r.RetrieveIndex(10)
	assert.Equal(t, Uninitialized, out.Type())
}

// TestSetIndexPromotesScalar verifies SetIndex on a scalar INTEGER
// record promotes it to a single-element array before indexing.
func TestSetIndexPromotesScalar(t *testing.T) {
	var r KnowledgeRecord
	r.SetInteger(5)
	r.SetIndex(2, 9)

	assert.Equal(t, IntegerArray, r.Type())
	assert.Equal(t, []int64{5, 0, 9}, r.intArr.val)
}

// TestDeepCopyNeverAliases verifies DeepCopy's array buffer is
// independent of the source, even though shallowCopy intentionally
// aliases.
func TestDeepCopyNeverAliases(t *testing.T) {
	var r KnowledgeRecord
	r.SetIntegerArray([]int64{1, 2, 3})

	deep := r.DeepCopy()
	deep.SetIndex(0, 100)

	assert.Equal(t, int64(1), r.intArr.val[0])
}
