// Package money holds fixed-point amounts tagged with an ISO 4217 code and converts them between
// the storefront's supported currencies.
package money

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Code is an ISO 4217 currency code
type Code string

// Supported currencies. INR is the base currency every catalog price is stored in.
const (
	INR Code = "INR"
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	JPY Code = "JPY"

	Base = INR
)

type currencyInfo struct {
	symbol     string
	minorUnits int32
	locale     language.Tag
}

var currencies = map[Code]currencyInfo{
	INR: {symbol: "₹", minorUnits: 2, locale: language.MustParse("en-IN")},
	USD: {symbol: "$", minorUnits: 2, locale: language.AmericanEnglish},
	EUR: {symbol: "€", minorUnits: 2, locale: language.English},
	GBP: {symbol: "£", minorUnits: 2, locale: language.BritishEnglish},
	JPY: {symbol: "¥", minorUnits: 0, locale: language.English},
}

// ErrNegativeAmount is returned when converting a negative amount
var ErrNegativeAmount = errors.New("money: amount cannot be negative")

// UnknownCurrencyError reports a currency code that is not supported or missing from a rate table
type UnknownCurrencyError struct {
	Code Code
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("money: unknown currency %q", string(e.Code))
}

// Supported returns the supported currency codes in alphabetical order
func Supported() []Code {
	codes := make([]Code, 0, len(currencies))
	for code := range currencies {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// ParseCode normalizes s and checks it against the supported set
func ParseCode(s string) (Code, error) {
	code := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !code.Valid() {
		return "", &UnknownCurrencyError{Code: code}
	}
	return code, nil
}

// Valid reports whether c is a supported currency
func (c Code) Valid() bool {
	_, ok := currencies[c]
	return ok
}

// MinorUnits is the number of decimal places of the currency's smallest unit
func (c Code) MinorUnits() int32 {
	if info, ok := currencies[c]; ok {
		return info.minorUnits
	}
	return 2
}

// Symbol returns the display symbol, falling back to the code itself
func (c Code) Symbol() string {
	if info, ok := currencies[c]; ok {
		return info.symbol
	}
	return string(c) + " "
}

// Money is an amount in minor units (paise, cents) of Currency
type Money struct {
	Amount   int64 `json:"amount"`
	Currency Code  `json:"currency"`
}

// New returns amount minor units of currency
func New(amount int64, currency Code) Money {
	return Money{Amount: amount, Currency: currency}
}

// FromMajor rounds a major-unit value to the currency's minor unit, half away from zero
func FromMajor(value decimal.Decimal, currency Code) Money {
	places := currency.MinorUnits()
	return Money{
		Amount:   value.Round(places).Shift(places).IntPart(),
		Currency: currency,
	}
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -m.Currency.MinorUnits())
}

// Mul multiplies the amount by an integer quantity
func (m Money) Mul(quantity int) Money {
	return Money{Amount: m.Amount * int64(quantity), Currency: m.Currency}
}

// Add sums two amounts of the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("money: cannot add %s to %s", other.Currency, m.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// String renders the amount with Format
func (m Money) String() string {
	return Format(m)
}

// Format renders m with its currency symbol and locale digit grouping, e.g. $1,234.50 or ₹1,23,456.00
func Format(m Money) string {
	info, ok := currencies[m.Currency]
	if !ok {
		return fmt.Sprintf("%s %s", m.Currency, m.Decimal().StringFixed(2))
	}

	amount := m.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	scale := int64(1)
	for i := int32(0); i < info.minorUnits; i++ {
		scale *= 10
	}

	printer := message.NewPrinter(info.locale)
	whole := printer.Sprintf("%v", amount/scale)
	if info.minorUnits == 0 {
		return sign + info.symbol + whole
	}
	return fmt.Sprintf("%s%s%s.%0*d", sign, info.symbol, whole, int(info.minorUnits), amount%scale)
}
