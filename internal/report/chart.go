// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/ManuGH/salesinsights/internal/sales"
)

// Chart canvas in SVG user units. The browser scales the viewBox.
const (
	chartWidth   = 640
	chartHeight  = 320
	padLeft      = 64
	padRight     = 16
	padTop       = 28
	padBottom    = 56
	plotWidth    = chartWidth - padLeft - padRight
	plotHeight   = chartHeight - padTop - padBottom
	yTickCount   = 4
	barFillRatio = 0.6
)

// Tick is a horizontal grid line with its axis label.
type Tick struct {
	Y     float64
	Label string
}

// Point is one marker of the line chart.
type Point struct {
	X, Y  float64
	Label string // x-axis label (YYYY-MM)
	Value string // tooltip
}

// LineChart is a precomputed SVG polyline.
type LineChart struct {
	Width, Height int
	Left, Right   float64
	Baseline      float64
	Polyline      string
	Points        []Point
	Ticks         []Tick
	LabelEvery    int // only every n-th x label is drawn
}

// Empty reports whether there is nothing to draw.
func (c LineChart) Empty() bool { return len(c.Points) == 0 }

// Bar is one column of a bar chart.
type Bar struct {
	X, Y, W, H float64
	Center     float64
	Label      string
	Value      string // SI short form drawn above the bar
	Title      string // exact amount for the tooltip
}

// BarChart is a precomputed SVG column chart.
type BarChart struct {
	Width, Height int
	Left, Right   float64
	Baseline      float64
	Bars          []Bar
	Ticks         []Tick
}

// Empty reports whether there is nothing to draw.
func (c BarChart) Empty() bool { return len(c.Bars) == 0 }

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten so axis ticks
// land on readable values.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

func yFor(v, top float64) float64 {
	if v < 0 {
		v = 0
	}
	return padTop + plotHeight*(1-v/top)
}

func ticks(top float64) []Tick {
	out := make([]Tick, 0, yTickCount+1)
	for i := 0; i <= yTickCount; i++ {
		v := top * float64(i) / yTickCount
		out = append(out, Tick{Y: yFor(v, top), Label: sales.FormatShort(v)})
	}
	return out
}

func newLineChart(months []sales.MonthPoint) LineChart {
	c := LineChart{
		Width: chartWidth, Height: chartHeight,
		Left: padLeft, Right: chartWidth - padRight,
		Baseline:   padTop + plotHeight,
		LabelEvery: 1,
	}
	if len(months) == 0 {
		return c
	}

	peak := 0.0
	for _, m := range months {
		peak = math.Max(peak, m.Revenue)
	}
	top := niceCeil(peak)
	c.Ticks = ticks(top)

	step := 0.0
	if len(months) > 1 {
		step = plotWidth / float64(len(months)-1)
	}
	const maxLabels = 12
	if len(months) > maxLabels {
		c.LabelEvery = (len(months) + maxLabels - 1) / maxLabels
	}

	coords := make([]string, 0, len(months))
	for i, m := range months {
		x := padLeft + step*float64(i)
		if len(months) == 1 {
			x = padLeft + plotWidth/2
		}
		y := yFor(m.Revenue, top)
		c.Points = append(c.Points, Point{
			X: x, Y: y,
			Label: m.YearMonth,
			Value: m.YearMonth + ": " + sales.FormatMoney(m.Revenue, 2),
		})
		coords = append(coords, fmtCoord(x)+","+fmtCoord(y))
	}
	c.Polyline = strings.Join(coords, " ")
	return c
}

func newBarChart(items []sales.Ranked) BarChart {
	c := BarChart{
		Width: chartWidth, Height: chartHeight,
		Left: padLeft, Right: chartWidth - padRight,
		Baseline: padTop + plotHeight,
	}
	if len(items) == 0 {
		return c
	}

	peak := 0.0
	for _, it := range items {
		peak = math.Max(peak, it.Revenue)
	}
	top := niceCeil(peak)
	c.Ticks = ticks(top)

	slot := plotWidth / float64(len(items))
	w := slot * barFillRatio
	for i, it := range items {
		x := padLeft + slot*float64(i) + (slot-w)/2
		y := yFor(it.Revenue, top)
		c.Bars = append(c.Bars, Bar{
			X: x, Y: y, W: w, H: c.Baseline - y,
			Center: x + w/2,
			Label:  it.Name,
			Value:  sales.FormatShort(it.Revenue),
			Title:  it.Name + ": " + sales.FormatMoney(it.Revenue, 2),
		})
	}
	return c
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
