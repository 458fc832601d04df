package flattener

import (
	"strings"

	"github.com/shopspring/decimal"
)

// amountParser is one attempt at reading a textual amount.
type amountParser func(text string) (float64, bool)

var amountParsers = []amountParser{
	parseGroupedAmount,
	parseParenthesizedAmount,
}

// NormalizeAmount converts a raw amount to a number where it can. Strings may carry thousands
// separators and the accounting "(500)" form for negatives. Anything that cannot be read as a
// number is returned unchanged.
func NormalizeAmount(raw Value) Value {
	switch raw.Kind() {
	case Number:
		if f, ok := raw.AsFloat(); ok {
			return NumberValue(f)
		}
	case String:
		text, _ := raw.AsString()
		for _, parse := range amountParsers {
			if f, ok := parse(text); ok {
				return NumberValue(f)
			}
		}
	}
	return raw
}

// parseGroupedAmount handles "1,234.50".
func parseGroupedAmount(text string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(text, ",", "")))
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// parseParenthesizedAmount handles "(1,000)" as -1000.
func parseParenthesizedAmount(text string) (float64, bool) {
	text = strings.ReplaceAll(text, "(", "-")
	text = strings.ReplaceAll(text, ")", "")
	return parseGroupedAmount(text)
}
