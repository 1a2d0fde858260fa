package mintstats

import (
	"strconv"

	"irys-monitor/internal/infra/charts"
)

// RenderChart draws the window's counts as a bar card.
func RenderChart(w MintStatsWindow) ([]byte, error) {
	subtitle := "No mints in the last 24 hours"
	if w.WindowStart != "" || w.WindowEnd != "" {
		subtitle = w.WindowStart + " to " + w.WindowEnd
	}
	return charts.RenderBarChart(charts.BarChart{
		Title:    "Mint Statistics",
		Subtitle: subtitle,
		Bars: []charts.Bar{
			{Label: "Total Mints", Value: count(w.TotalMints)},
			{Label: "Top Verifier", Value: count(w.VerifierCount)},
			{Label: "Top Ref", Value: count(w.RefCount)},
			{Label: "Top Recipient", Value: count(w.RecipientCount)},
		},
	})
}

func count(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
