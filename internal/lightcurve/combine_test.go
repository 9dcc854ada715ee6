package lightcurve

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine_SortedUnion(t *testing.T) {
	a := mustCurve(t, []float64{0, 2, 4}, []float64{1, 3, 5}, []float64{1, 1, 1})
	a.setY(intPtr(1))
	b := mustCurve(t, []float64{1, 3}, []float64{2, 4}, []float64{2, 2})

	u, err := Combine(a, b)
	require.NoError(t, err)
	assert.Equal(t, a.Len()+b.Len(), u.Len())
	assert.True(t, slices.IsSorted(u.Days()))
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, u.Obs())
	assert.Equal(t, []float64{1, 2, 1, 2, 1}, u.Obse())
	assert.Equal(t, 1, *u.Y())

	v, err := b.Union(a)
	require.NoError(t, err)
	if diff := cmp.Diff(u.Days(), v.Days()); diff != "" {
		t.Errorf("union not commutative on days (-a+b +b+a):\n%s", diff)
	}
}

func TestCombine_NilSentinel(t *testing.T) {
	a := mustCurve(t, []float64{0, 1}, []float64{1, 2}, []float64{1, 1})
	for _, got := range []func() (*Curve, error){
		func() (*Curve, error) { return Combine(a, nil) },
		func() (*Curve, error) { return Combine(nil, a) },
	} {
		c, err := got()
		require.NoError(t, err)
		require.NotSame(t, a, c)
		assert.Equal(t, a.Days(), c.Days())
		assert.Equal(t, a.Obs(), c.Obs())
		assert.Equal(t, a.Obse(), c.Obse())
	}

	c, err := Combine(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCombine_TieRejected(t *testing.T) {
	a := mustCurve(t, []float64{0, 1}, []float64{1, 2}, []float64{1, 1})
	b := mustCurve(t, []float64{1, 2}, []float64{1, 2}, []float64{1, 1})
	_, err := Combine(a, b)
	assert.ErrorIs(t, err, ErrDaysNotIncreasing)
}
