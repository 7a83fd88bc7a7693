package order

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatInt formats n with thousands separators, e.g. 1234567 -> "1,234,567".
func FormatInt(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats f with thousands separators and two decimals, e.g. 1234.5 -> "1,234.50".
func FormatFloat(f float64) string {
	return printer.Sprintf("%.2f", f)
}
