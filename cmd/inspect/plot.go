package main

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotHistogram writes a PNG bar chart with the number of examples of each class id.
func plotHistogram(outPath string, counts []int) error {
	if len(counts) == 0 {
		return errors.New("no classes to plot")
	}
	values := make(plotter.Values, len(counts))
	maxCount := 0
	for id, c := range counts {
		values[id] = float64(c)
		maxCount = max(maxCount, c)
	}

	p := plot.New()
	p.Title.Text = "Examples per class"
	p.X.Label.Text = "class id"
	p.Y.Label.Text = "examples"

	const plotWidth = 10 * vg.Inch
	barWidth := max(plotWidth/vg.Length(len(counts)+1), vg.Points(0.2))
	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.Add(plotter.NewGrid())
	p.X.Min = -1
	p.X.Max = float64(len(counts))
	p.Y.Min = 0
	p.Y.Max = float64(maxCount) * 1.06
	if maxCount == 0 {
		p.Y.Max = 1
	}

	if err := ensureDir(filepath.Dir(outPath)); err != nil {
		return err
	}
	return p.Save(plotWidth, 4*vg.Inch, outPath)
}

func ensureDir(path string) error {
	// Attempt to create directory if it doesn't exist (silently succeed if present).
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
