package factor

import (
	"math"
	"strconv"
)

// Frame is a CSV-ready table: one header row and one string row per trading
// day, columns in the fixed output layout.
type Frame struct {
	Header []string
	Rows   [][]string
}

func (f *Frame) Empty() bool {
	return f == nil || len(f.Rows) == 0
}

// decimalPlaces matches the original dataset's rounding.
const decimalPlaces = 4

// formatValue renders a numeric cell rounded to four decimals, with
// insignificant trailing zeros dropped. NaN renders as an empty cell.
func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	pow := math.Pow10(decimalPlaces)
	v = math.Round(v*pow) / pow
	return strconv.FormatFloat(v, 'f', -1, 64)
}
