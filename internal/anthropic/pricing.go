package anthropic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPricing holds USD prices per million tokens.
type ModelPricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

func mtok(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Prices are matched by model-name prefix so dated snapshots
// (claude-sonnet-4-5-20250929) resolve to their family.
var modelPricing = map[string]ModelPricing{
	"claude-opus-4":   {mtok("15"), mtok("75")},
	"claude-sonnet-4": {mtok("3"), mtok("15")},
	"claude-haiku-4":  {mtok("1"), mtok("5")},
}

var million = decimal.NewFromInt(1_000_000)

// EstimateCost returns the USD cost of a request from its usage. Unknown
// models cost zero rather than guessing.
func EstimateCost(model string, usage Usage) decimal.Decimal {
	for prefix, p := range modelPricing {
		if strings.HasPrefix(model, prefix) {
			in := decimal.NewFromInt(int64(usage.InputTokens)).Mul(p.InputPerMTok).Div(million)
			out := decimal.NewFromInt(int64(usage.OutputTokens)).Mul(p.OutputPerMTok).Div(million)
			return in.Add(out)
		}
	}
	return decimal.Zero
}
