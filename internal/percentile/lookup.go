// Package percentile maps metric values to population-percentile labels
// using fixed threshold tables. Lookup is pure and side-effect-free.
package percentile

import (
	"fmt"
	"sort"
)

// Result is one resolved lookup.
type Result struct {
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Percentile int     `json:"percentile"`
	Label      string  `json:"label"`
	LabelPl    string  `json:"labelPl"`
}

// tier is one threshold step: values at or past Threshold (in the metric's
// improving direction) rank at Percentile.
type tier struct {
	Threshold  float64
	Percentile int
}

// table is the ordered threshold list for one metric, walked best-first.
// LowerIsBetter flips the comparison: response times improve downward,
// volume metrics improve upward.
type table struct {
	LowerIsBetter bool
	Tiers         []tier
}

// lowestPercentile is returned when a value clears no tier.
const lowestPercentile = 10

// tables holds the fixed population thresholds per metric key.
// Response time is in minutes; rates are per day or per message.
var tables = map[string]table{
	"response_time": {
		LowerIsBetter: true,
		Tiers: []tier{
			{2, 95},
			{5, 90},
			{15, 75},
			{30, 50},
			{60, 25},
		},
	},
	"messages_per_day": {
		Tiers: []tier{
			{100, 95},
			{50, 90},
			{25, 75},
			{10, 50},
			{3, 25},
		},
	},
	"health_score": {
		Tiers: []tier{
			{90, 95},
			{75, 90},
			{60, 75},
			{45, 50},
			{30, 25},
		},
	},
	"reactions_per_message": {
		Tiers: []tier{
			{0.5, 95},
			{0.3, 90},
			{0.15, 75},
			{0.05, 50},
			{0.01, 25},
		},
	},
	"session_length": {
		Tiers: []tier{
			{60, 95},
			{40, 90},
			{25, 75},
			{12, 50},
			{5, 25},
		},
	},
}

// Lookup resolves a metric value against its threshold table. The walk is
// boundary-inclusive in the improving direction (<= for lower-is-better,
// >= otherwise); a value past every tier gets the lowest percentile. An
// unknown metric key also resolves to the lowest percentile.
func Lookup(metric string, value float64) Result {
	tbl, ok := tables[metric]
	p := lowestPercentile
	if ok {
		for _, t := range tbl.Tiers {
			if (tbl.LowerIsBetter && value <= t.Threshold) || (!tbl.LowerIsBetter && value >= t.Threshold) {
				p = t.Percentile
				break
			}
		}
	}
	return Result{
		Metric:     metric,
		Value:      value,
		Percentile: p,
		Label:      label(p),
		LabelPl:    labelPl(p),
	}
}

// LookupAll applies Lookup to several named values at once, silently
// omitting non-positive entries (a guard against division-by-zero
// artifacts upstream). Results are ordered by metric key.
func LookupAll(values map[string]float64) []Result {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]Result, 0, len(keys))
	for _, k := range keys {
		out = append(out, Lookup(k, values[k]))
	}
	return out
}

// label derives the display label mechanically from the percentile:
// "Top N%" at the 50th percentile and above, "Bottom N%" below.
func label(p int) string {
	if p >= 50 {
		return fmt.Sprintf("Top %d%%", 100-p)
	}
	return fmt.Sprintf("Bottom %d%%", p)
}

func labelPl(p int) string {
	if p >= 50 {
		return fmt.Sprintf("Górne %d%%", 100-p)
	}
	return fmt.Sprintf("Dolne %d%%", p)
}
