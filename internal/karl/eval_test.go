package karl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppriyankuu/knowledgebase/internal/knowledge"
)

// TestEvalOperatorPrecedence verifies * and / bind tighter than + and -.
func TestEvalOperatorPrecedence(t *testing.T) {
	e := New(knowledge.NewContext())
	v, err := e.Eval("2 + 3 * 4")
	require.NoError(t, err)
	assert.Equal(t, float64(14), v)
}

// TestEvalParenthesesOverridePrecedence verifies grouping changes
// evaluation order.
func TestEvalParenthesesOverridePrecedence(t *testing.T) {
	e := New(knowledge.NewContext())
	v, err := e.Eval("(2 + 3) * 4")
	require.NoError(t, err)
	assert.Equal(t, float64(20), v)
}

// TestEvalReferenceResolvesFromContext verifies a {name} token pulls
// its value from the bound context.
func TestEvalReferenceResolvesFromContext(t *testing.T) {
	ctx := knowledge.NewContext()
	ctx.SetDouble("x", 10, knowledge.DefaultUpdateSettings())

	e := New(ctx)
	v, err := e.Eval("{x} + 5")
	require.NoError(t, err)
	assert.Equal(t, float64(15), v)
}

// TestEvalUnresolvedReferenceIsZero verifies an unset variable
// contributes 0, matching Context.Get's UNCREATED-record contract.
func TestEvalUnresolvedReferenceIsZero(t *testing.T) {
	e := New(knowledge.NewContext())
	v, err := e.Eval("{missing} + 7")
	require.NoError(t, err)
	assert.Equal(t, float64(7), v)
}

// TestEvalDivisionByZero verifies division by zero is a parse-time
// error rather than an Inf/NaN result.
func TestEvalDivisionByZero(t *testing.T) {
	e := New(knowledge.NewContext())
	_, err := e.Eval("1 / 0")
	assert.Error(t, err)
}

// TestAssignStoresResultAsDouble verifies Assign evaluates the RHS and
// writes it back into the context.
func TestAssignStoresResultAsDouble(t *testing.T) {
	ctx := knowledge.NewContext()
	e := New(ctx)
	require.NoError(t, e.Assign("total", "2 * (3 + 4)"))
	assert.Equal(t, float64(14), ctx.Get("total").ToDouble())
}

// TestEvalUnexpectedTrailingInput verifies trailing garbage after a
// valid expression is rejected.
func TestEvalUnexpectedTrailingInput(t *testing.T) {
	e := New(knowledge.NewContext())
	_, err := e.Eval("1 + 2 3")
	assert.Error(t, err)
}
