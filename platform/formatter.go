package platform

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts in the store currency.
type Formatter interface {
	Format(amount float64) string
	Currency() string
}

// CurrencyFormatter formats amounts with the currency symbol for a locale.
type CurrencyFormatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewCurrencyFormatter builds a formatter for an ISO 4217 code and a BCP 47 locale.
// An empty locale means English.
func NewCurrencyFormatter(code, locale string) (*CurrencyFormatter, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	tag := language.English
	if locale != "" {
		if tag, err = language.Parse(locale); err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
	}
	return &CurrencyFormatter{unit: unit, printer: message.NewPrinter(tag)}, nil
}

func (f *CurrencyFormatter) Format(amount float64) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount)))
}

func (f *CurrencyFormatter) Currency() string {
	return f.unit.String()
}
