// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sales

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders v with thousands separators and the given number of
// decimals, prefixed by a dollar sign: FormatMoney(1234.5, 2) == "$1,234.50".
func FormatMoney(v float64, decimals int) string {
	if v < 0 {
		return "-$" + FormatNumber(-v, decimals)
	}
	return "$" + FormatNumber(v, decimals)
}

// FormatNumber renders v with thousands separators and fixed decimals.
func FormatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return printer.Sprintf("%."+strconv.Itoa(decimals)+"f", v)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatShort renders v with two significant digits and an SI suffix, the way
// chart bar labels abbreviate values: 1234 -> "1.2k", 3400000 -> "3.4M".
func FormatShort(v float64) string {
	if v == 0 {
		return "0"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	units := []struct {
		scale  float64
		suffix string
	}{
		{1e12, "T"},
		{1e9, "G"},
		{1e6, "M"},
		{1e3, "k"},
		{1, ""},
	}
	for i, u := range units {
		if v >= u.scale {
			scaled := roundSig(v/u.scale, 2)
			// 999.6k rounds up to the next unit
			if scaled >= 1000 && i > 0 {
				return sign + "1" + units[i-1].suffix
			}
			return sign + strconv.FormatFloat(scaled, 'f', -1, 64) + u.suffix
		}
	}
	return sign + strconv.FormatFloat(roundSig(v, 2), 'f', -1, 64)
}

func roundSig(v float64, digits int) float64 {
	if v == 0 {
		return 0
	}
	mag := math.Ceil(math.Log10(math.Abs(v)))
	pow := math.Pow(10, float64(digits)-mag)
	return math.Round(v*pow) / pow
}
