// Package console renders opportunity tracking for a human watching
// the process. Formatting lives here, never in the core.
package console

import (
	"context"
	"fmt"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// Tracker prints reported opportunities as single lines; with
// showSuppressed it also logs the candidates gating rejected.
type Tracker struct {
	showSuppressed bool
}

func NewTracker(showSuppressed bool) *Tracker {
	return &Tracker{showSuppressed: showSuppressed}
}

func (t *Tracker) Track(ctx context.Context, o model.Opportunity, reported bool, reason string) {
	if reported {
		ts := time.UnixMilli(o.Ts).Format("15:04:05")
		fmt.Printf("%s  ARB %-10s buy %s@%.6f -> sell %s@%.6f  net $%.4f (%.3f%%)  conf %.2f\n",
			ts, o.Pair.String(), o.BuySource, o.BuyPrice, o.SellSource, o.SellPrice,
			o.NetProfit, o.NetProfitPercent, o.Confidence)
		return
	}
	if t.showSuppressed {
		log.Debug().
			Str("pair", o.Pair.String()).
			Str("buy", o.BuySource).
			Str("sell", o.SellSource).
			Float64("net_pct", o.NetProfitPercent).
			Float64("confidence", o.Confidence).
			Str("reason", reason).
			Msg("candidate suppressed")
	}
}

var _ port.Tracker = (*Tracker)(nil)
