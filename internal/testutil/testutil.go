// Package testutil provides shared test utilities and fixtures.
//
// Fixtures return plain series rather than light-curve types so that every
// package, including lightcurve itself, can use them.
package testutil

import (
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Series generates a plausible single-band light curve of n points: days
// one to three days apart starting at start, obs a noisy bump and obse
// roughly proportional to sqrt(obs).
func Series(rng *rand.Rand, n int, start float64) (days, obs, obse []float64) {
	days = make([]float64, n)
	obs = make([]float64, n)
	obse = make([]float64, n)
	d := start
	for i := range n {
		d += 1 + 2*rng.Float64()
		days[i] = d
		peak := float64(n) / 3
		x := float64(i) - peak
		obs[i] = 0.01 + 0.2*math.Exp(-x*x/(2*peak*peak+1)) + 0.01*rng.Float64()
		obse[i] = 0.002 + 0.02*math.Sqrt(obs[i])*(0.5+rng.Float64())
	}
	return days, obs, obse
}
