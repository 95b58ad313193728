package guard_test

import (
	"testing"

	"github.com/midbel/xsltproof/internal/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConjunction(t *testing.T) {
	expr := guard.Parse("Role != 'intern' and Age >= 18 and Salary > 0")
	and, ok := expr.(guard.And)
	require.True(t, ok, "expected a top-level And node")

	atoms := guard.Atoms(and)
	require.Len(t, atoms, 3)
	assert.Equal(t, "Role", atoms[0].Path)
	assert.Equal(t, guard.OpNe, atoms[0].Op)
	assert.Equal(t, "Age", atoms[1].Path)
	assert.Equal(t, guard.OpGe, atoms[1].Op)
	assert.Equal(t, "Salary", atoms[2].Path)
	assert.Equal(t, guard.OpGt, atoms[2].Op)
}

func TestParseLegacyEqualsAndEscapes(t *testing.T) {
	expr := guard.Parse("Age &gt;= 0")
	cmp, ok := expr.(guard.Compare)
	require.True(t, ok)
	assert.Equal(t, guard.OpGe, cmp.Op)

	expr = guard.Parse("Role = 'manager'")
	cmp, ok = expr.(guard.Compare)
	require.True(t, ok)
	assert.Equal(t, guard.OpEq, cmp.Op)
	assert.Equal(t, "manager", cmp.Literal.Text)
}

func TestParseUnrecognizedPreservedVerbatim(t *testing.T) {
	expr := guard.Parse("contains(Name, 'x')")
	un, ok := expr.(guard.Unparsed)
	require.True(t, ok)
	assert.Equal(t, "contains(Name, 'x')", un.Text)
}

func TestDisjointEquality(t *testing.T) {
	a := guard.Parse("Role == 'manager'")
	b := guard.Parse("Role == 'developer'")
	assert.True(t, guard.Disjoint(a, b))

	c := guard.Parse("Role == 'manager'")
	assert.False(t, guard.Disjoint(a, c))
}

func TestDisjointNumericRanges(t *testing.T) {
	a := guard.Parse("Age < 18")
	b := guard.Parse("Age >= 18")
	assert.True(t, guard.Disjoint(a, b))

	c := guard.Parse("Age >= 10")
	assert.False(t, guard.Disjoint(a, c))
}

func TestImpliesMinInclusive(t *testing.T) {
	expr := guard.Parse("Age >= 18")
	assert.True(t, guard.Implies(expr, "Age", guard.Restriction{Keyword: "minInclusive", Values: []string{"18"}}))
	assert.False(t, guard.Implies(expr, "Age", guard.Restriction{Keyword: "minInclusive", Values: []string{"21"}}))
}

func TestImpliesEnumerationRequiresFullCoverage(t *testing.T) {
	expr := guard.Parse("Role == 'manager' or Role == 'developer'")
	full := guard.Restriction{Keyword: "enumeration", Values: []string{"manager", "developer"}}
	assert.True(t, guard.Implies(expr, "Role", full))

	partial := guard.Restriction{Keyword: "enumeration", Values: []string{"manager", "developer", "intern"}}
	assert.False(t, guard.Implies(expr, "Role", partial))
}
