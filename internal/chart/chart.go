package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/Alias1177/fxpulse/internal/calculate"
	"github.com/Alias1177/fxpulse/models"
)

// ErrNotEnoughData is returned for series that cannot be drawn as a line
var ErrNotEnoughData = errors.New("not enough bars to draw a chart")

const (
	width  = 1000
	height = 500
)

// Renderer draws daily close prices with EMA overlays into PNG files
type Renderer struct {
	dir    string
	logger zerolog.Logger
}

// NewRenderer creates a renderer writing into dir (os.TempDir() when empty)
func NewRenderer(dir string) *Renderer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Renderer{
		dir:    dir,
		logger: log.With().Str("component", "chart").Logger(),
	}
}

// Render writes the chart and returns its path. The caller owns the file and removes it.
func (r *Renderer) Render(series *models.PriceSeries, title string) (string, error) {
	if series.Len() < 2 {
		return "", ErrNotEnoughData
	}

	times := series.Times()
	closes := series.Closes()

	graph := gochart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeDateValueFormatter,
		},
		YAxis: gochart.YAxis{
			Name: "Price",
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Close",
				XValues: times,
				YValues: closes,
				Style: gochart.Style{
					StrokeColor: gochart.ColorBlue,
					StrokeWidth: 2,
				},
			},
			gochart.TimeSeries{
				Name:    "EMA 20",
				XValues: times,
				YValues: calculate.EWMA(closes, calculate.FastEMASpan),
				Style: gochart.Style{
					StrokeColor:     gochart.ColorOrange,
					StrokeDashArray: []float64{5, 5},
				},
			},
			gochart.TimeSeries{
				Name:    "EMA 50",
				XValues: times,
				YValues: calculate.EWMA(closes, calculate.SlowEMASpan),
				Style: gochart.Style{
					StrokeColor:     gochart.ColorGreen,
					StrokeDashArray: []float64{5, 5},
				},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("chart dir: %w", err)
	}
	path := filepath.Join(r.dir, fmt.Sprintf("fxpulse_%s.png", uuid.NewString()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}

	if err := graph.Render(gochart.PNG, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("render chart: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close chart file: %w", err)
	}

	r.logger.Debug().Str("title", title).Str("path", path).Int("bars", series.Len()).Msg("Chart rendered")
	return path, nil
}
