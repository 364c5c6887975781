package safemath

import (
	"math"
	"math/big"
	"testing"
)

func TestMulSaturateNormal(t *testing.T) {
	if got := MulSaturate(150, 100); got != 15000 {
		t.Fatalf("got %d, want 15000", got)
	}
	if got := MulSaturate(-150, 100); got != -15000 {
		t.Fatalf("got %d, want -15000", got)
	}
}

func TestMulSaturateOverflow(t *testing.T) {
	if got := MulSaturate(math.MaxInt64, 2); got != math.MaxInt64 {
		t.Fatalf("got %d, want MaxInt64", got)
	}
	if got := MulSaturate(math.MinInt64, 2); got != math.MinInt64 {
		t.Fatalf("got %d, want MinInt64", got)
	}
	if got := MulSaturate(math.MinInt64, -1); got != math.MaxInt64 {
		t.Fatalf("got %d, want MaxInt64", got)
	}
}

func TestAddSaturateOverflow(t *testing.T) {
	if got := AddSaturate(math.MaxInt64, 1); got != math.MaxInt64 {
		t.Fatalf("got %d, want MaxInt64", got)
	}
	if got := AddSaturate(math.MinInt64, -1); got != math.MinInt64 {
		t.Fatalf("got %d, want MinInt64", got)
	}
	if got := AddSaturate(10, 20); got != 30 {
		t.Fatalf("got %d, want 30", got)
	}
}

func TestNegSaturate(t *testing.T) {
	if got := NegSaturate(math.MinInt64); got != math.MaxInt64 {
		t.Fatalf("got %d, want MaxInt64", got)
	}
	if got := NegSaturate(5); got != -5 {
		t.Fatalf("got %d, want -5", got)
	}
}

func TestBigToInt64Saturate(t *testing.T) {
	huge := new(big.Int).Mul(big.NewInt(math.MaxInt64), big.NewInt(1000))
	if got := BigToInt64Saturate(huge); got != math.MaxInt64 {
		t.Fatalf("got %d, want MaxInt64", got)
	}
	negHuge := new(big.Int).Neg(huge)
	if got := BigToInt64Saturate(negHuge); got != math.MinInt64 {
		t.Fatalf("got %d, want MinInt64", got)
	}
	if got := BigToInt64Saturate(big.NewInt(42)); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}
