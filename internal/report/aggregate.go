// Package report turns the cleaned table into the adoption dashboard: four
// charts rendered to PNG and a workbook with the aggregate tables behind
// them.
package report

import (
	"fmt"
	"sort"

	"evadoption/internal/frame"
)

// Columns the report reads.
const (
	ColRegion     = "Region"
	ColBEVShares  = "BEV Shares"
	ColEVsSold    = "EVs Sold"
	ColNonEVSales = "Non-EV Sales"
	ColEVStocks   = "EV Stocks"
)

// OtherLabel names the bucket that collects regions past the top N.
const OtherLabel = "Other"

// Point is one row of the EVs-sold versus non-EV-sales scatter.
type Point struct {
	Region     string
	EVsSold    float64
	NonEVSales float64
}

// Share is one slice of the EV stock distribution.
type Share struct {
	Region  string
	Stocks  float64
	Percent float64
}

// Summary holds every aggregate the dashboard draws.
type Summary struct {
	AvgBEVShares []frame.Group // mean BEV Shares per region, descending
	TotalEVsSold []frame.Group // sum of EVs Sold per region, descending
	Scatter      []Point       // rows where both sales figures are present
	StockShares  []Share       // top N regions by EV Stocks, plus Other
}

// Build computes the dashboard aggregates. topN <= 0 keeps every region in
// StockShares.
func Build(f *frame.Frame, topN int) (Summary, error) {
	var s Summary
	var err error

	if s.AvgBEVShares, err = f.GroupMean(ColRegion, ColBEVShares); err != nil {
		return s, fmt.Errorf("report: average BEV shares: %w", err)
	}
	sortGroups(s.AvgBEVShares)

	if s.TotalEVsSold, err = f.GroupSum(ColRegion, ColEVsSold); err != nil {
		return s, fmt.Errorf("report: total EVs sold: %w", err)
	}
	sortGroups(s.TotalEVsSold)

	if s.Scatter, err = scatterPoints(f); err != nil {
		return s, err
	}

	stocks, err := f.GroupSum(ColRegion, ColEVStocks)
	if err != nil {
		return s, fmt.Errorf("report: EV stocks: %w", err)
	}
	s.StockShares = topShares(stocks, topN)
	return s, nil
}

// sortGroups orders by value descending; ties keep first-seen order.
func sortGroups(g []frame.Group) {
	sort.SliceStable(g, func(i, j int) bool { return g[i].Value > g[j].Value })
}

// scatterPoints pairs EV and non-EV sales per row. Rows missing either
// number are skipped.
func scatterPoints(f *frame.Frame) ([]Point, error) {
	ri, xi, yi := f.Index(ColRegion), f.Index(ColEVsSold), f.Index(ColNonEVSales)
	for _, c := range []struct {
		name string
		idx  int
	}{{ColRegion, ri}, {ColEVsSold, xi}, {ColNonEVSales, yi}} {
		if c.idx < 0 {
			return nil, fmt.Errorf("report: scatter: %w: %q", frame.ErrColumnNotFound, c.name)
		}
	}
	var out []Point
	for _, r := range f.Rows() {
		x, okx := frame.ToFloat(r[xi])
		y, oky := frame.ToFloat(r[yi])
		if !okx || !oky {
			continue
		}
		region, _ := frame.KeyString(r[ri])
		out = append(out, Point{Region: region, EVsSold: x, NonEVSales: y})
	}
	return out, nil
}

// topShares keeps the n largest groups and folds the rest into Other.
// Percentages are of the grand total; a zero total leaves them at zero.
func topShares(groups []frame.Group, n int) []Share {
	g := append([]frame.Group(nil), groups...)
	sortGroups(g)

	var total float64
	for _, x := range g {
		total += x.Value
	}
	pct := func(v float64) float64 {
		if total == 0 {
			return 0
		}
		return 100 * v / total
	}

	keep := len(g)
	if n > 0 && n < keep {
		keep = n
	}
	out := make([]Share, 0, keep+1)
	for _, x := range g[:keep] {
		out = append(out, Share{Region: x.Key, Stocks: x.Value, Percent: pct(x.Value)})
	}
	if keep < len(g) {
		var rest float64
		for _, x := range g[keep:] {
			rest += x.Value
		}
		out = append(out, Share{Region: OtherLabel, Stocks: rest, Percent: pct(rest)})
	}
	return out
}
