package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"evadoption/internal/frame"
)

// Chart file names inside the report directory.
const (
	FileAvgBEV      = "avg_bev_shares_by_region.png"
	FileTotalSold   = "total_evs_sold_by_region.png"
	FileScatter     = "evs_sold_vs_non_ev_sales.png"
	FileStockShares = "ev_stock_shares_by_region.png"
)

// Series colors, one per chart.
var (
	barBlue    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	barViridis = color.RGBA{R: 68, G: 1, B: 84, A: 255}
	dotRed     = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	sliceTeal  = color.RGBA{R: 33, G: 145, B: 140, A: 255}
)

// renderCharts draws the four dashboard panels as PNG files in dir and
// returns the paths written so far, also on error. The two region bars are
// cut to topN; the stock share chart already carries its own Other bucket.
func renderCharts(dir string, s Summary, topN int) ([]string, error) {
	type job struct {
		file string
		draw func() (*plot.Plot, error)
	}
	jobs := []job{
		{FileAvgBEV, func() (*plot.Plot, error) {
			return groupBar("Average BEV Shares by Region", "BEV Shares", limit(s.AvgBEVShares, topN), barBlue)
		}},
		{FileTotalSold, func() (*plot.Plot, error) {
			return groupBar("Total EV Sales by Region", "Total EVs Sold", limit(s.TotalEVsSold, topN), barViridis)
		}},
		{FileScatter, func() (*plot.Plot, error) { return scatter(s.Scatter) }},
		{FileStockShares, func() (*plot.Plot, error) { return shareBar(s.StockShares) }},
	}
	var written []string
	for _, j := range jobs {
		p, err := j.draw()
		if err != nil {
			return written, fmt.Errorf("report: %s: %w", j.file, err)
		}
		path := filepath.Join(dir, j.file)
		// 16x9 inches keeps rotated region names readable.
		if err := p.Save(16*vg.Inch, 9*vg.Inch, path); err != nil {
			return written, fmt.Errorf("report: save %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// limit returns the first n groups; n <= 0 keeps all of them.
func limit(g []frame.Group, n int) []frame.Group {
	if n > 0 && n < len(g) {
		return g[:n]
	}
	return g
}

// newPlot returns an empty plot with the shared title and axis styling.
func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// rotateTicks slants nominal X labels so long region names do not overlap.
func rotateTicks(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
}

// groupBar draws one bar per group, in the order given. An empty input
// still yields a titled, empty chart.
func groupBar(title, yLabel string, groups []frame.Group, c color.Color) (*plot.Plot, error) {
	p := newPlot(title, "Region", yLabel)
	if len(groups) == 0 {
		return p, nil
	}
	values := make(plotter.Values, len(groups))
	labels := make([]string, len(groups))
	for i, g := range groups {
		values[i] = g.Value
		labels[i] = g.Key
	}
	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Color = c
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	rotateTicks(p)
	p.Y.Min = 0
	return p, nil
}

// scatter plots EVs Sold against Non-EV Sales, one dot per region.
func scatter(points []Point) (*plot.Plot, error) {
	p := newPlot("EVs Sold vs Non-EV Sales by Region", "EVs Sold", "Non-EV Sales")
	p.Add(plotter.NewGrid())
	if len(points) == 0 {
		return p, nil
	}
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.EVsSold, Y: pt.NonEVSales}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = dotRed
	sc.GlyphStyle.Radius = vg.Points(3.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)
	return p, nil
}

// shareBar stands in for the dashboard's pie chart: one bar per region with
// its percentage printed above it.
func shareBar(shares []Share) (*plot.Plot, error) {
	p := newPlot("Share of EV Stocks by Region", "Region", "Share of EV Stocks (%)")
	if len(shares) == 0 {
		return p, nil
	}
	values := make(plotter.Values, len(shares))
	labels := make([]string, len(shares))
	xys := make(plotter.XYs, len(shares))
	texts := make([]string, len(shares))
	for i, s := range shares {
		values[i] = s.Percent
		labels[i] = s.Region
		xys[i] = plotter.XY{X: float64(i), Y: s.Percent}
		texts[i] = fmt.Sprintf("%.1f%%", s.Percent)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return nil, err
	}
	bars.Color = sliceTeal
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	// Percent labels sit at the top of each bar.
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	p.Add(lbl)
	p.NominalX(labels...)
	rotateTicks(p)
	p.Y.Min = 0
	return p, nil
}
