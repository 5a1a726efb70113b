package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
)

// ErrNotEnoughData indicates fewer than two points were supplied; a line
// needs at least two.
var ErrNotEnoughData = errors.New("chart: not enough data points")

// RenderPNG draws a price series as a PNG line chart.
func RenderPNG(points []storage.PricePoint, title string) ([]byte, error) {
	if len(points) < 2 {
		return nil, ErrNotEnoughData
	}

	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Bucket
		y[i] = p.PriceUSD.InexactFloat64()
	}

	yaxis := gochart.YAxis{Name: "Price (USD)"}
	lo, hi := y[0], y[0]
	for _, v := range y {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		// go-chart cannot render a zero-delta range.
		pad := math.Abs(lo) * 0.01
		if pad == 0 {
			pad = 1
		}
		yaxis.Range = &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  1200,
		Height: 450,
		XAxis: gochart.XAxis{
			Name:           "Time (UTC)",
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04"),
		},
		YAxis: yaxis,
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Price",
				XValues: x,
				YValues: y,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
