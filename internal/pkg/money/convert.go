package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateTable maps each currency to the number of its major units per one unit of the base currency
type RateTable map[Code]decimal.Decimal

// DefaultRates is the static table the storefront ships with
func DefaultRates() RateTable {
	return RateTable{
		INR: decimal.NewFromInt(1),
		USD: decimal.RequireFromString("0.012"),
		EUR: decimal.RequireFromString("0.011"),
		GBP: decimal.RequireFromString("0.0095"),
		JPY: decimal.RequireFromString("1.8"),
	}
}

// Validate checks that every supported currency has exactly one positive rate and the base is 1
func (t RateTable) Validate() error {
	for code, rate := range t {
		if !code.Valid() {
			return &UnknownCurrencyError{Code: code}
		}
		if !rate.IsPositive() {
			return fmt.Errorf("money: rate for %s must be positive, got %s", code, rate)
		}
	}
	for _, code := range Supported() {
		if _, ok := t[code]; !ok {
			return fmt.Errorf("money: rate table is missing %s", code)
		}
	}
	if !t[Base].Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("money: base currency %s must have rate 1, got %s", Base, t[Base])
	}
	return nil
}

func (t RateTable) rate(code Code) (decimal.Decimal, error) {
	rate, ok := t[code]
	if !ok || !code.Valid() {
		return decimal.Decimal{}, &UnknownCurrencyError{Code: code}
	}
	return rate, nil
}

// ConvertExact converts amount into the target currency and returns the unrounded value in major
// units. Callers that combine several converted values round once at the end.
func ConvertExact(amount Money, to Code, rates RateTable) (decimal.Decimal, error) {
	if amount.Amount < 0 {
		return decimal.Decimal{}, ErrNegativeAmount
	}
	fromRate, err := rates.rate(amount.Currency)
	if err != nil {
		return decimal.Decimal{}, err
	}
	toRate, err := rates.rate(to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if amount.Currency == to {
		return amount.Decimal(), nil
	}
	return amount.Decimal().Mul(toRate).Div(fromRate), nil
}

// Convert converts amount into the target currency, rounded to the target's minor unit
func Convert(amount Money, to Code, rates RateTable) (Money, error) {
	exact, err := ConvertExact(amount, to, rates)
	if err != nil {
		return Money{}, err
	}
	return FromMajor(exact, to), nil
}
