// Package locale formats numbers for the two interface languages.
package locale

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Language is an interface language.
type Language string

const (
	French  Language = "fr"
	English Language = "en"
)

// NotAvailable stands in for absent values.
const NotAvailable = "N/A"

// Parse returns the language for s, defaulting to French.
func Parse(s string) Language {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "en") {
		return English
	}
	return French
}

// Tag returns the BCP 47 tag of l.
func (l Language) Tag() language.Tag {
	if l == English {
		return language.English
	}
	return language.French
}

func (l Language) printer() *message.Printer {
	return message.NewPrinter(l.Tag())
}

// Number formats v with grouping and at most maxFrac fraction digits.
func (l Language) Number(v float64, maxFrac int) string {
	return l.printer().Sprint(number.Decimal(v, number.MaxFractionDigits(maxFrac)))
}

// Signed is Number with an explicit sign for positive values.
func (l Language) Signed(v float64, maxFrac int) string {
	s := l.Number(v, maxFrac)
	if v > 0 {
		return "+" + s
	}
	return s
}

// Price formats a price per m², rounded to the euro.
func (l Language) Price(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return NotAvailable
	}
	return l.Number(math.Round(*v), 0) + " €/m²"
}

// Transactions formats a transaction count.
func (l Language) Transactions(n *int64) string {
	if n == nil {
		return NotAvailable
	}
	return l.Number(float64(*n), 0) + " transactions"
}
