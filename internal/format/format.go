package format

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var symbols = map[string]string{
	"USD": "$",
	"JPY": "¥",
	"EUR": "€",
	"GBP": "£",
}

// Price formats a major-unit amount for display. Whole amounts drop their
// fraction: Price(20, "USD", "en") => "$20", Price(1240, "USD", "en") => "$1,240".
func Price(amount float64, code, lang string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit, code = currency.USD, "USD"
	}
	scale, _ := currency.Standard.Rounding(unit)
	if amount == math.Trunc(amount) {
		scale = 0
	}

	p := message.NewPrinter(language.Make(lang))
	digits := p.Sprint(number.Decimal(math.Abs(amount),
		number.MinFractionDigits(scale),
		number.MaxFractionDigits(scale),
	))

	symbol, ok := symbols[code]
	if !ok {
		symbol = code + " "
	}
	if amount < 0 {
		return "-" + symbol + digits
	}
	return symbol + digits
}

// Rating formats a star rating with at most one decimal: 4.5, 4, 0.
func Rating(v float64, lang string) string {
	p := message.NewPrinter(language.Make(lang))
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(1)))
}

// Count formats an integer with locale grouping.
func Count(n int, lang string) string {
	p := message.NewPrinter(language.Make(lang))
	return p.Sprint(number.Decimal(n))
}

// Percent formats a discount percentage without the sign: 20, 12.5.
func Percent(v float64, lang string) string {
	p := message.NewPrinter(language.Make(lang))
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(1)))
}
