package utils

import (
	"math"
	"testing"

	"arena/geometry"
)

func TestFiniteVec(t *testing.T) {
	if !FiniteVec(geometry.Vector{X: 1, Y: -2.5}) {
		t.Fatal("finite vector reported as non-finite")
	}
	if FiniteVec(geometry.Vector{X: float32(math.NaN()), Y: 0}) {
		t.Fatal("NaN passed the check")
	}
	if FiniteVec(geometry.Vector{X: 0, Y: float32(math.Inf(1))}) {
		t.Fatal("Inf passed the check")
	}
}

func TestGetEnvIntDefault(t *testing.T) {
	t.Setenv("ARENA_TEST_INT", "42")
	if got := GetEnvIntDefault("ARENA_TEST_INT", 1); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	t.Setenv("ARENA_TEST_INT", "not-a-number")
	if got := GetEnvIntDefault("ARENA_TEST_INT", 7); got != 7 {
		t.Fatalf("got %d, want fallback 7", got)
	}
	if got := GetEnvIntDefault("ARENA_TEST_MISSING", 9); got != 9 {
		t.Fatalf("got %d, want fallback 9", got)
	}
}
