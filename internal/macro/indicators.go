package macro

import (
	"context"
	"math"
	"time"

	"advisorbrief/internal/core"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/metrics"
)

// StageName is the pipeline stage that fills core.BriefingState.MacroIndicators.
const StageName = "fetch_macro_indicators"

// Observations per month: trading days for daily series, one for monthly ones.
const (
	Daily   = 21
	Monthly = 1
)

// Indicator describes one series of the macro table.
type Indicator struct {
	Label    string
	SeriesID string
	// PerMonth is the number of observations per month; zero reports the level only.
	PerMonth int
}

// DefaultIndicators is the macro table of a briefing, in display order.
var DefaultIndicators = []Indicator{
	{Label: "S&P 500 Index", SeriesID: "SP500", PerMonth: Daily},
	{Label: "WTI Crude Oil Price", SeriesID: "DCOILWTICO", PerMonth: Daily},
	{Label: "US Dollar Index (Broad)", SeriesID: "DTWEXBGS", PerMonth: Daily},
	{Label: "US CPI", SeriesID: "CPIAUCSL", PerMonth: Monthly},
	{Label: "US GDP Growth Rate", SeriesID: "A191RL1Q225SBEA"},
	{Label: "US Unemployment Rate", SeriesID: "UNRATE"},
	{Label: "10-Year Treasury Yield", SeriesID: "GS10"},
	{Label: "Fed Funds Rate", SeriesID: "FEDFUNDS"},
}

// lookbackMonths are the change windows reported per indicator.
var lookbackMonths = [...]int{1, 3, 6, 12, 24}

// history is how far back observations are requested.
const history = 25 * 31 * 24 * time.Hour

// Collector builds indicator snapshots from a Source.
type Collector struct {
	source     Source
	indicators []Indicator
}

// NewCollector creates a Collector; nil indicators use DefaultIndicators.
func NewCollector(source Source, indicators []Indicator) *Collector {
	if indicators == nil {
		indicators = DefaultIndicators
	}
	return &Collector{source: source, indicators: indicators}
}

// Snapshot returns the latest level of ind as of asOf and its percent changes.
func (c *Collector) Snapshot(ctx context.Context, ind Indicator, asOf time.Time) (core.IndicatorSnapshot, error) {
	snap := core.IndicatorSnapshot{Label: ind.Label, SeriesID: ind.SeriesID}

	observations, err := c.source.Observations(ctx, ind.SeriesID, asOf.Add(-history), asOf)
	metrics.RecordExternal(serviceName, err)
	if err != nil {
		return snap, core.External(serviceName, ind.SeriesID, err)
	}

	values := make([]float64, len(observations))
	for i, o := range observations {
		values[i] = o.Value
	}
	snap.Level = round2(values[len(values)-1])

	if ind.PerMonth > 0 {
		changes := make([]*float64, len(lookbackMonths))
		for i, months := range lookbackMonths {
			changes[i] = PercentChange(values, months*ind.PerMonth)
		}
		snap.Change1M, snap.Change3M, snap.Change6M, snap.Change1Y, snap.Change2Y =
			changes[0], changes[1], changes[2], changes[3], changes[4]
	}
	return snap, nil
}

// PercentChange compares the latest value with the one offset positions from the end.
// It is nil when the series is not longer than offset or the base value is zero.
func PercentChange(values []float64, offset int) *float64 {
	if offset <= 0 || len(values) <= offset {
		return nil
	}
	latest := values[len(values)-1]
	past := values[len(values)-offset]
	if past == 0 {
		return nil
	}
	return round2((latest - past) / past * 100)
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}

// FetchMacroIndicators is the fetch_macro_indicators stage. A failing indicator keeps its
// label with nil values; the stage itself never fails on collaborator errors.
func (c *Collector) FetchMacroIndicators(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if state.MeetingTime.IsZero() {
		return state, core.Missing(StageName, core.FieldMeetingTime)
	}

	snapshots := make([]core.IndicatorSnapshot, 0, len(c.indicators))
	failed := 0
	for _, ind := range c.indicators {
		snap, err := c.Snapshot(ctx, ind, state.MeetingTime)
		if err != nil {
			failed++
			logger.Warn("macro indicator unavailable", "run_id", state.RunID, "series", ind.SeriesID, "error", err)
			snap = core.IndicatorSnapshot{Label: ind.Label, SeriesID: ind.SeriesID}
		}
		snapshots = append(snapshots, snap)
	}

	state.MacroIndicators = snapshots
	logger.Info("macro indicators fetched", "run_id", state.RunID, "indicators", len(snapshots), "failed", failed)
	return state, nil
}
