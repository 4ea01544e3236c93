package service

import "errors"

// ErrNoLiquidity means a quote carries no usable liquidity figure, so
// slippage for the direction cannot be priced.
var ErrNoLiquidity = errors.New("quote has zero liquidity")

// SlippageModel is a step function of trade-size over venue liquidity,
// scaled by a volatility multiplier and hard-capped. A deliberately
// simple heuristic: the only guarantees are monotonic increase with
// the size/liquidity ratio and the cap.
type SlippageModel struct {
	VolatilityMult float64 // scales every band
	HardCap        float64 // ceiling after scaling
}

func NewSlippageModel() *SlippageModel {
	return &SlippageModel{VolatilityMult: 1.2, HardCap: 0.025}
}

// Estimate returns the fractional slippage for trading tradeSize
// against liquidity.
func (m *SlippageModel) Estimate(tradeSize, liquidity float64) (float64, error) {
	if liquidity <= 0 {
		return 0, ErrNoLiquidity
	}
	if tradeSize <= 0 {
		return 0, nil
	}

	ratio := tradeSize / liquidity
	var base float64
	switch {
	case ratio <= 0.001:
		base = 0.0001
	case ratio <= 0.005:
		base = 0.0005
	case ratio <= 0.01:
		base = 0.001
	case ratio <= 0.05:
		base = 0.003
	default:
		base = ratio * 10
		if base > 0.02 {
			base = 0.02
		}
	}

	slip := base * m.VolatilityMult
	if slip > m.HardCap {
		slip = m.HardCap
	}
	return slip, nil
}
