package synthetic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/testutil"
)

type objectList []*lightcurve.Object

func (l objectList) Objects() []*lightcurve.Object { return l }

// fixtureObjects builds n two-band objects whose "g" band has length
// lengthOf(i).
func fixtureObjects(t *testing.T, seed uint64, n int, lengthOf func(i int) int) objectList {
	t.Helper()
	rng := testutil.NewRand(seed)
	out := make(objectList, n)
	for i := range out {
		o := lightcurve.NewObject(lightcurve.Metadata{IsFlux: true})
		days, obs, obse := testutil.Series(rng, lengthOf(i), 0)
		require.NoError(t, o.AttachBand("g", days, obs, obse))
		if i%2 == 0 {
			days, obs, obse = testutil.Series(rng, 8, 0)
			require.NoError(t, o.AttachBand("r", days, obs, obse))
		}
		out[i] = o
	}
	return out
}
