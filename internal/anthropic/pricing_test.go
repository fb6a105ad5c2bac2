package anthropic

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model string
		usage Usage
		want  string
	}{
		// 1M in at $3 + 1M out at $15
		{"claude-sonnet-4-5", Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, "18"},
		// dated snapshot resolves through the family prefix
		{"claude-haiku-4-5-20251101", Usage{InputTokens: 500_000, OutputTokens: 100_000}, "1"},
		{"claude-opus-4-1", Usage{InputTokens: 100_000, OutputTokens: 0}, "1.5"},
		{"someone-elses-model", Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, "0"},
		{"claude-sonnet-4-5", Usage{}, "0"},
	}

	for _, tt := range tests {
		got := EstimateCost(tt.model, tt.usage)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("EstimateCost(%s, %+v) = %s, want %s", tt.model, tt.usage, got, tt.want)
		}
	}
}
