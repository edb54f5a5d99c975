// Package render turns aggregate series and cached payloads into PNG bytes.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/i474232898/solar-fits-dashboard/internal/aggregate"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to render")

const (
	chartWidth  = 1024
	chartHeight = 480
)

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    3,
	}
}

// TrendChart renders min, mean and max intensity of a year's series as a PNG.
func TrendChart(view aggregate.View) ([]byte, error) {
	if len(view.Series) == 0 {
		return nil, ErrNoData
	}

	times := make([]time.Time, 0, len(view.Series))
	var mins, means, maxes []float64
	for _, p := range view.Series {
		times = append(times, p.Timestamp)
		mins = append(mins, p.Min)
		means = append(means, p.Mean)
		maxes = append(maxes, p.Max)
	}

	// A single point has no x range; stretch it over one minute.
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Minute))
		mins = append(mins, mins[0])
		means = append(means, means[0])
		maxes = append(maxes, maxes[0])
	}

	// go-chart rejects a zero-height y range.
	var yRange chart.Range
	lo, hi := mins[0], maxes[0]
	for i := range mins {
		lo = math.Min(lo, math.Min(mins[i], means[i]))
		hi = math.Max(hi, math.Max(maxes[i], means[i]))
	}
	if lo == hi {
		yRange = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Intensity trend %s", view.Year),
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:           "Observation time (UTC)",
			ValueFormatter: chart.TimeValueFormatterWithFormat("02/01 15:04"),
		},
		YAxis: chart.YAxis{Name: "Intensity", Range: yRange},
		Series: []chart.Series{
			chart.TimeSeries{Name: "max", XValues: times, YValues: maxes, Style: lineStyle(chart.ColorRed)},
			chart.TimeSeries{Name: "mean", XValues: times, YValues: means, Style: lineStyle(chart.ColorBlue)},
			chart.TimeSeries{Name: "min", XValues: times, YValues: mins, Style: lineStyle(chart.ColorGreen)},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}
	return buf.Bytes(), nil
}
