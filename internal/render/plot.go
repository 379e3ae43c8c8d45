package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

// Plot image size.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 8 * vg.Inch
)

var reportColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// NewPlot builds a longitude/latitude plot of clusters over reports. Each
// incident type gets its own colour; cluster glyphs scale with density.
func NewPlot(clusters []hotspot.Cluster, reports []hotspot.Report, title string) (*plot.Plot, error) {
	p := plot.New()
	if title == "" {
		title = "Incident Hotspots"
	}
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(plotter.NewGrid())

	if len(reports) > 0 {
		pts := make(plotter.XYs, len(reports))
		for i, r := range reports {
			pts[i] = plotter.XY{X: r.Lng, Y: r.Lat}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to plot reports: %w", err)
		}
		s.GlyphStyle.Color = reportColor
		s.GlyphStyle.Radius = vg.Points(1)
		p.Add(s)
	}

	maxDensity := 0.0
	for _, c := range clusters {
		maxDensity = math.Max(maxDensity, c.Density)
	}

	for i, group := range byType(clusters) {
		pts := make(plotter.XYs, len(group.clusters))
		for j, c := range group.clusters {
			pts[j] = plotter.XY{X: c.Center.Lng, Y: c.Center.Lat}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to plot %s clusters: %w", group.typ, err)
		}

		col := plotutil.Color(i)
		members := group.clusters
		s.GlyphStyleFunc = func(k int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  col,
				Radius: vg.Points(float64(symbolSize(members[k].Density, maxDensity)) / 2),
				Shape:  draw.RingGlyph{},
			}
		}
		p.Add(s)
		p.Legend.Add(group.typ, s)
	}
	return p, nil
}

// WritePlot renders the plot as PNG to w.
func WritePlot(w io.Writer, clusters []hotspot.Cluster, reports []hotspot.Report, title string) error {
	p, err := NewPlot(clusters, reports, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to create PNG writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return nil
}

// SavePlot renders the plot to a file; the format follows the extension.
func SavePlot(path string, clusters []hotspot.Cluster, reports []hotspot.Report, title string) error {
	p, err := NewPlot(clusters, reports, title)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
