package service

import (
	"math"
	"testing"
	"time"
)

func TestSlippageMonotonicAndCapped(t *testing.T) {
	m := NewSlippageModel()

	sizes := []float64{10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000}
	prev := -1.0
	for _, size := range sizes {
		slip, err := m.Estimate(size, 1_000_000)
		if err != nil {
			t.Fatalf("size %v: %v", size, err)
		}
		if slip < prev {
			t.Errorf("slippage not monotonic: size %v gave %v after %v", size, slip, prev)
		}
		if slip > m.HardCap {
			t.Errorf("slippage %v exceeds hard cap %v", slip, m.HardCap)
		}
		prev = slip
	}
}

func TestSlippageBands(t *testing.T) {
	m := NewSlippageModel()

	// ratio 0.0001 sits in the smallest band: 0.01% * 1.2
	slip, err := m.Estimate(100, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(slip-0.00012) > 1e-9 {
		t.Errorf("smallest band slippage = %v, want 0.00012", slip)
	}
}

func TestSlippageZeroLiquidity(t *testing.T) {
	m := NewSlippageModel()
	if _, err := m.Estimate(100, 0); err == nil {
		t.Error("expected an error for zero liquidity")
	}
}

func TestFeeEstimateSumsComponents(t *testing.T) {
	f := NewFeeModel(DefaultFeeConfig())
	at := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	b := f.Estimate(testPair, 100, at)
	sum := b.Network + b.Trading + b.Priority + b.Rent + b.Wrap + b.Failure + b.Timing
	if math.Abs(b.Total-sum) > 1e-9 {
		t.Errorf("total %v != component sum %v", b.Total, sum)
	}
	if b.Total <= 0 {
		t.Error("fee total must be positive")
	}

	// deterministic for a fixed instant
	if again := f.Estimate(testPair, 100, at); again != b {
		t.Error("fee estimate must be a pure function of (pair, size, time)")
	}
}

func TestFeeWrapOnlyForWrappedNative(t *testing.T) {
	f := NewFeeModel(DefaultFeeConfig())
	at := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	wrapped := f.Estimate(testPair, 100, at) // SOL leg
	if wrapped.Wrap <= 0 {
		t.Error("pair with a wrapped-native leg must pay the wrap fee")
	}

	other := testPair
	other.BaseAddress = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	plain := f.Estimate(other, 100, at)
	if plain.Wrap != 0 {
		t.Errorf("pair without a wrapped-native leg paid wrap fee %v", plain.Wrap)
	}
}

func TestFeeCongestionHours(t *testing.T) {
	f := NewFeeModel(DefaultFeeConfig())
	quiet := f.Estimate(testPair, 100, time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC))
	busy := f.Estimate(testPair, 100, time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC))
	if busy.Priority <= quiet.Priority {
		t.Errorf("busy-hour priority fee %v should exceed quiet-hour %v", busy.Priority, quiet.Priority)
	}
	if busy.Timing <= quiet.Timing {
		t.Errorf("busy-hour timing buffer %v should exceed quiet-hour %v", busy.Timing, quiet.Timing)
	}
}
