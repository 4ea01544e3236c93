package service

import (
	"time"

	"solarb/internal/domain/model"
)

// FeeConfig holds the constants behind every fee component. These are
// configurable defaults calibrated by hand, not laws; each component
// reads only its own knobs so any one can be re-tuned independently.
type FeeConfig struct {
	NativePriceUSD float64 // assumed price of the chain's native token

	// network transaction cost
	BaseTxFeeNative float64 // per-signature fee in native units
	TxCount         int     // signatures per round trip

	// venue trading fee
	VenueFeeBps float64 // average venue fee, basis points per leg

	// priority / congestion fee
	PriorityBaseUSD float64
	MEVPremium      float64 // multiplier during MEV-heavy conditions

	// temporary account rent
	RentNative   float64 // rent-exempt minimum per account, native units
	RentAccounts int

	// wrap/unwrap
	WrapFeeUSD        float64
	WrappedNativeMint string // a pair leg matching this address needs wrapping

	// expected failed-attempt cost
	FailureRate    float64
	AvgRetries     float64
	FailureCostUSD float64

	// execution-timing risk buffer
	TimingRiskBps float64
}

// DefaultFeeConfig mirrors observed Solana mainnet ballparks.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		NativePriceUSD:    150,
		BaseTxFeeNative:   0.000005,
		TxCount:           4,
		VenueFeeBps:       25,
		PriorityBaseUSD:   0.05,
		MEVPremium:        2.0,
		RentNative:        0.00203928,
		RentAccounts:      2,
		WrapFeeUSD:        0.01,
		WrappedNativeMint: "So11111111111111111111111111111111111111112",
		FailureRate:       0.15,
		AvgRetries:        1.5,
		FailureCostUSD:    0.08,
		TimingRiskBps:     5,
	}
}

// FeeBreakdown itemizes the seven cost components, all in USD.
type FeeBreakdown struct {
	Network  float64 `json:"network"`
	Trading  float64 `json:"trading"`
	Priority float64 `json:"priority"`
	Rent     float64 `json:"rent"`
	Wrap     float64 `json:"wrap"`
	Failure  float64 `json:"failure"`
	Timing   float64 `json:"timing"`
	Total    float64 `json:"total"`
}

// FeeModel prices a round trip for a pair and trade size at a point in
// time. Every component is a pure function of (pair, size, time).
type FeeModel struct {
	cfg FeeConfig
}

func NewFeeModel(cfg FeeConfig) *FeeModel { return &FeeModel{cfg: cfg} }

// Estimate sums the seven components.
func (f *FeeModel) Estimate(pair model.TokenPair, tradeSize float64, at time.Time) FeeBreakdown {
	hour := at.UTC().Hour()
	b := FeeBreakdown{
		Network:  f.networkFee(),
		Trading:  f.tradingFee(tradeSize),
		Priority: f.priorityFee(hour),
		Rent:     f.rentFee(),
		Wrap:     f.wrapFee(pair),
		Failure:  f.failureFee(),
		Timing:   f.timingRisk(tradeSize, hour),
	}
	b.Total = b.Network + b.Trading + b.Priority + b.Rent + b.Wrap + b.Failure + b.Timing
	return b
}

func (f *FeeModel) networkFee() float64 {
	return f.cfg.BaseTxFeeNative * float64(f.cfg.TxCount) * f.cfg.NativePriceUSD
}

func (f *FeeModel) tradingFee(tradeSize float64) float64 {
	return tradeSize * f.cfg.VenueFeeBps / 10000 * 2 // two legs
}

func (f *FeeModel) priorityFee(hour int) float64 {
	return f.cfg.PriorityBaseUSD * f.cfg.MEVPremium * congestionMult(hour)
}

func (f *FeeModel) rentFee() float64 {
	return f.cfg.RentNative * float64(f.cfg.RentAccounts) * f.cfg.NativePriceUSD
}

func (f *FeeModel) wrapFee(pair model.TokenPair) float64 {
	if f.cfg.WrappedNativeMint == "" {
		return 0
	}
	if pair.BaseAddress == f.cfg.WrappedNativeMint || pair.QuoteAddress == f.cfg.WrappedNativeMint {
		return f.cfg.WrapFeeUSD
	}
	return 0
}

func (f *FeeModel) failureFee() float64 {
	return f.cfg.FailureRate * f.cfg.AvgRetries * f.cfg.FailureCostUSD
}

func (f *FeeModel) timingRisk(tradeSize float64, hour int) float64 {
	return tradeSize * f.cfg.TimingRiskBps / 10000 * volatilityMult(hour)
}

// congestionMult models daily fee pressure by UTC hour: US/EU market
// overlap is the busy window, late UTC night the quiet one.
func congestionMult(hour int) float64 {
	switch {
	case hour >= 13 && hour <= 21:
		return 1.5
	case hour >= 6 && hour <= 12:
		return 1.0
	default:
		return 0.7
	}
}

// volatilityMult follows the same clock: volatility clusters around
// the US session open.
func volatilityMult(hour int) float64 {
	switch {
	case hour >= 13 && hour <= 16:
		return 1.4
	case hour >= 17 && hour <= 21:
		return 1.2
	default:
		return 1.0
	}
}
