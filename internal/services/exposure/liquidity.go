package exposure

import "strings"

// LiquidityTier groups symbols by option market depth.
type LiquidityTier string

const (
	HighLiquidity   LiquidityTier = "HIGH"
	MediumLiquidity LiquidityTier = "MEDIUM"
	LowLiquidity    LiquidityTier = "LOW"
)

// Liquidity is the ATM half-window used by the flip search.
type Liquidity struct {
	Tier      LiquidityTier `json:"category"`
	WindowPct float64       `json:"window_pct"`
}

// Fraction returns the window as a fraction of spot.
func (l Liquidity) Fraction() float64 { return l.WindowPct / 100 }

var tiers = map[LiquidityTier]struct {
	pct     float64
	members []string
}{
	HighLiquidity: {6, []string{
		"PETR4", "VALE3", "BOVA11", "ITUB4", "BBDC4", "BBAS3", "B3SA3", "ABEV3", "PETR3",
	}},
	MediumLiquidity: {9, []string{
		"WEGE3", "MGLU3", "SUZB3", "PRIO3", "RENT3", "GGBR4", "ELET3", "JBSS3", "LREN3",
		"CSNA3", "USIM5", "EMBR3", "ITSA4", "BBSE3", "RADL3", "HAPV3", "CMIG4", "COGN3",
	}},
}

var membership = func() map[string]LiquidityTier {
	m := make(map[string]LiquidityTier)
	for tier, t := range tiers {
		for _, s := range t.members {
			m[s] = tier
		}
	}
	return m
}()

// Classify returns the liquidity tier and window for a symbol. Unknown symbols are LOW (13%).
func Classify(symbol string) Liquidity {
	tier, ok := membership[strings.ToUpper(strings.TrimSuffix(symbol, ".SA"))]
	if !ok {
		return Liquidity{Tier: LowLiquidity, WindowPct: 13}
	}
	return Liquidity{Tier: tier, WindowPct: tiers[tier].pct}
}
