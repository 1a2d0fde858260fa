// Package charts renders report cards as PNG images in memory.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"

	logging "irys-monitor/internal/infra/log"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	chartWidth  = 1200
	chartHeight = 675

	titleX = 60.0
	titleY = 80.0

	subtitleY = 125.0

	chartAreaLeft   = 120.0
	chartAreaRight  = 1140.0
	chartAreaTop    = 190.0
	chartAreaBottom = 585.0

	gridLinesCount = 4

	titleFontSize    = 44.0
	subtitleFontSize = 24.0
	labelFontSize    = 24.0
	valueFontSize    = 28.0

	barSpacing      = 40.0
	barValueOffsetY = 14.0
	labelOffsetY    = 36.0
)

var (
	background = color.RGBA{18, 18, 24, 255}
	barColor   = color.RGBA{122, 92, 255, 255}
	gridColor  = color.RGBA{70, 70, 80, 255}
)

// Bar is one labelled value.
type Bar struct {
	Label string
	Value float64
}

type BarChart struct {
	Title    string
	Subtitle string
	Bars     []Bar
}

// Font lookup order: bundled fonts first, then common system locations.
var fontPaths = []string{
	"etc/fonts/InterVariable.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/inter/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/Library/Fonts/Inter-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

var (
	fontOnce sync.Once
	fontPath string
)

func findFont() string {
	fontOnce.Do(func() {
		for _, p := range fontPaths {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if _, err := gg.LoadFontFace(p, labelFontSize); err != nil {
				logging.LogWarn("Font file exists but failed to load", zap.String("path", p), zap.Error(err))
				continue
			}
			fontPath, _ = filepath.Abs(p)
			logging.LogDebug("Loaded chart font", zap.String("path", fontPath))
			return
		}
		logging.LogWarn("No chart font found, using default face", zap.Int("paths_checked", len(fontPaths)))
	})
	return fontPath
}

// setFont switches the face size when a font file is available. The gg
// default face has a fixed size.
func setFont(dc *gg.Context, size float64) {
	if p := findFont(); p != "" {
		if err := dc.LoadFontFace(p, size); err != nil {
			logging.LogWarn("Failed to set font size", zap.Float64("size", size), zap.Error(err))
		}
	}
}

// RenderBarChart draws the chart and returns PNG bytes.
func RenderBarChart(c BarChart) ([]byte, error) {
	if len(c.Bars) == 0 {
		return nil, errors.New("bar chart needs at least one bar")
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(background)
	dc.Clear()

	dc.SetColor(color.White)
	setFont(dc, titleFontSize)
	dc.DrawString(c.Title, titleX, titleY)
	if c.Subtitle != "" {
		setFont(dc, subtitleFontSize)
		dc.SetColor(color.RGBA{170, 170, 180, 255})
		dc.DrawString(c.Subtitle, titleX, subtitleY)
	}

	maxValue := 0.0
	for _, b := range c.Bars {
		maxValue = math.Max(maxValue, b.Value)
	}
	scaleMax := niceCeil(maxValue)
	areaHeight := chartAreaBottom - chartAreaTop

	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for i := 0; i <= gridLinesCount; i++ {
		y := chartAreaBottom - float64(i)/gridLinesCount*areaHeight
		dc.DrawLine(chartAreaLeft, y, chartAreaRight, y)
		dc.Stroke()
	}

	n := float64(len(c.Bars))
	barWidth := (chartAreaRight - chartAreaLeft - barSpacing*(n+1)) / n
	for i, b := range c.Bars {
		x := chartAreaLeft + barSpacing + float64(i)*(barWidth+barSpacing)
		h := b.Value / scaleMax * areaHeight
		y := chartAreaBottom - h

		dc.SetColor(barColor)
		dc.DrawRectangle(x, y, barWidth, h)
		dc.Fill()

		dc.SetColor(color.White)
		setFont(dc, valueFontSize)
		value := formatValue(b.Value)
		w, _ := dc.MeasureString(value)
		dc.DrawString(value, x+(barWidth-w)/2, y-barValueOffsetY)

		setFont(dc, labelFontSize)
		lw, _ := dc.MeasureString(b.Label)
		dc.DrawString(b.Label, x+(barWidth-lw)/2, chartAreaBottom+labelOffsetY)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	if buf.Len() == 0 {
		return nil, errors.New("chart is empty after rendering")
	}
	return buf.Bytes(), nil
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten so grid lines land on round values.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
