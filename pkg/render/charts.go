package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
)

// ErrNotChart is returned by VisualSVG for visuals that are not drawn as charts.
var ErrNotChart = errors.New("render: visual is not a chart")

// errDataMismatch marks a visual whose Data does not fit its Kind.
var errDataMismatch = errors.New("render: data does not match visual kind")

// Palette is the color cycle for chart series and pie slices.
var Palette = []string{"#0078d4", "#ffaa44", "#00b7c3", "#ff4343", "#881798", "#107c10"}

const (
	chartWidth  = 300
	chartHeight = 200
	pieSize     = 200
	barWidth    = 30
)

func paletteColor(i int) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(Palette[i%len(Palette)], "#"))
}

// VisualSVG draws a single chart visual as a standalone SVG document.
func VisualSVG(v embedsdk.Visual) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch v.Kind {
	case embedsdk.KindLine:
		err = lineChart(&buf, v.Data)
	case embedsdk.KindBar:
		err = barChart(&buf, v.Data)
	case embedsdk.KindPie:
		err = pieChart(&buf, v.Data)
	default:
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotChart, v.Name, v.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", v.Name, err)
	}
	return buf.Bytes(), nil
}

func salesPoints(data any) ([]embedsdk.SalesPoint, error) {
	points, ok := data.([]embedsdk.SalesPoint)
	if !ok || len(points) == 0 {
		return nil, errDataMismatch
	}
	return points, nil
}

func monthTicks(points []embedsdk.SalesPoint) []chart.Tick {
	ticks := make([]chart.Tick, len(points))
	for i, p := range points {
		ticks[i] = chart.Tick{Value: float64(i), Label: p.Month}
	}
	return ticks
}

// lineChart draws sales as a solid line and target as a dashed line.
func lineChart(buf *bytes.Buffer, data any) error {
	points, err := salesPoints(data)
	if err != nil {
		return err
	}

	xs := make([]float64, len(points))
	sales := make([]float64, len(points))
	target := make([]float64, len(points))
	maxValue := 0.0
	for i, p := range points {
		xs[i] = float64(i)
		sales[i] = p.Sales
		target[i] = p.Target
		maxValue = max(maxValue, p.Sales, p.Target)
	}

	graph := chart.Chart{
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Ticks: monthTicks(points)},
		YAxis:  chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: max(maxValue, 1)}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Sales",
				XValues: xs,
				YValues: sales,
				Style: chart.Style{
					StrokeColor: paletteColor(0),
					StrokeWidth: 2,
					DotColor:    paletteColor(0),
					DotWidth:    4,
				},
			},
			chart.ContinuousSeries{
				Name:    "Target",
				XValues: xs,
				YValues: target,
				Style: chart.Style{
					StrokeColor:     paletteColor(1),
					StrokeWidth:     2,
					StrokeDashArray: []float64{5, 5},
					DotColor:        paletteColor(1),
					DotWidth:        4,
				},
			},
		},
	}
	return graph.Render(chart.SVG, buf)
}

// barChart draws one bar of sales per month.
func barChart(buf *bytes.Buffer, data any) error {
	points, err := salesPoints(data)
	if err != nil {
		return err
	}

	bars := make([]chart.Value, len(points))
	maxValue := 0.0
	for i, p := range points {
		maxValue = max(maxValue, p.Sales)
		bars[i] = chart.Value{
			Value: p.Sales,
			Label: p.Month,
			Style: chart.Style{FillColor: paletteColor(0), StrokeColor: paletteColor(0)},
		}
	}

	graph := chart.BarChart{
		Width:      chartWidth + 60,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: 10,
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: max(maxValue, 1)}},
		Bars:       bars,
	}
	return graph.Render(chart.SVG, buf)
}

// pieChart draws category shares. Slice colors follow Palette by index.
func pieChart(buf *bytes.Buffer, data any) error {
	shares, ok := data.([]embedsdk.Share)
	if !ok || len(shares) == 0 {
		return errDataMismatch
	}

	values := make([]chart.Value, len(shares))
	for i, s := range shares {
		values[i] = chart.Value{
			Value: s.Value,
			Label: s.Category,
			Style: chart.Style{FillColor: paletteColor(i), StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		}
	}

	graph := chart.PieChart{
		Width:  pieSize,
		Height: pieSize,
		Values: values,
	}
	return graph.Render(chart.SVG, buf)
}

// chartHTML wraps VisualSVG output for inclusion in the report template.
// The SVG is produced by go-chart from report data, not from request input.
func chartHTML(v embedsdk.Visual) (template.HTML, error) {
	svg, err := VisualSVG(v)
	if err != nil {
		return "", err
	}
	return template.HTML(svg), nil //nolint:gosec // generated SVG
}
