// Package render draws map-overlay previews of hotspot clusters: an
// interactive go-echarts scatter page and a static gonum/plot PNG.
package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/hotspot.report/internal/geo"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

// ChartOptions configures the HTML overlay.
type ChartOptions struct {
	Title string
	// AssetsHost overrides where the echarts JavaScript is loaded from.
	// Empty uses the go-echarts default CDN.
	AssetsHost string
}

// symbol sizes in pixels for cluster markers.
const (
	minSymbolSize = 8
	maxSymbolSize = 48
)

// Chart writes a scatter page with one series per incident type. Each
// cluster is a marker at its centre sized by density; reports, when given,
// are drawn as a faint background layer.
func Chart(w io.Writer, clusters []hotspot.Cluster, reports []hotspot.Report, o ChartOptions) error {
	title := o.Title
	if title == "" {
		title = "Incident Hotspots"
	}

	points := make([]geo.Point, 0, len(clusters)+len(reports))
	maxDensity := 0.0
	for _, c := range clusters {
		points = append(points, c.Center)
		maxDensity = math.Max(maxDensity, c.Density)
	}
	for _, r := range reports {
		points = append(points, r.Point())
	}
	bounds, ok := geo.BoundsOf(points)
	if !ok {
		bounds = geo.Bounds{MinLat: -1, MaxLat: 1, MinLng: -1, MaxLng: 1}
	}
	padLat := math.Max((bounds.MaxLat-bounds.MinLat)*0.05, 0.005)
	padLng := math.Max((bounds.MaxLng-bounds.MinLng)*0.05, 0.005)

	init := opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("clusters=%d reports=%d", len(clusters), len(reports))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithXAxisOpts(opts.XAxis{Min: bounds.MinLng - padLng, Max: bounds.MaxLng + padLng, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: bounds.MinLat - padLat, Max: bounds.MaxLat + padLat, Name: "Latitude", NameLocation: "middle", NameGap: 40}),
	)

	if len(reports) > 0 {
		data := make([]opts.ScatterData, 0, len(reports))
		for _, r := range reports {
			data = append(data, opts.ScatterData{Value: []interface{}{r.Lng, r.Lat}, Name: r.Type})
		}
		scatter.AddSeries("reports", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}

	for _, group := range byType(clusters) {
		data := make([]opts.ScatterData, 0, len(group.clusters))
		for _, c := range group.clusters {
			data = append(data, opts.ScatterData{
				Name:       fmt.Sprintf("%s %s r=%.2fkm n=%d", c.PrimaryType, methodLabel(c), c.Radius, c.Count),
				Value:      []interface{}{c.Center.Lng, c.Center.Lat, c.Density},
				SymbolSize: symbolSize(c.Density, maxDensity),
			})
		}
		scatter.AddSeries(group.typ, data)
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render hotspot chart: %w", err)
	}
	return nil
}

func symbolSize(density, maxDensity float64) int {
	if maxDensity <= 0 {
		return minSymbolSize
	}
	return minSymbolSize + int(math.Round(float64(maxSymbolSize-minSymbolSize)*density/maxDensity))
}

func methodLabel(c hotspot.Cluster) string {
	if c.Method == "" {
		return "single"
	}
	return c.Method
}

type typeGroup struct {
	typ      string
	clusters []hotspot.Cluster
}

// byType groups clusters by incident type in order of first appearance.
func byType(clusters []hotspot.Cluster) []typeGroup {
	var groups []typeGroup
	index := make(map[string]int)
	for _, c := range clusters {
		i, ok := index[c.PrimaryType]
		if !ok {
			i = len(groups)
			index[c.PrimaryType] = i
			groups = append(groups, typeGroup{typ: c.PrimaryType})
		}
		groups[i].clusters = append(groups[i].clusters, c)
	}
	return groups
}
