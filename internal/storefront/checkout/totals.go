package checkout

import (
	"fmt"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// Rules are the pricing inputs for totals. Threshold and fee are in the base currency.
type Rules struct {
	DisplayCurrency       money.Code
	Rates                 money.RateTable
	FreeShippingThreshold money.Money
	FlatShippingFee       money.Money
	TaxRate               decimal.Decimal
}

// RulesFromConfig builds rules from the storefront configuration and the static rate table
func RulesFromConfig(cfg config.StorefrontConfig) (Rules, error) {
	code, err := money.ParseCode(cfg.DisplayCurrency)
	if err != nil {
		return Rules{}, err
	}
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return Rules{}, fmt.Errorf("invalid tax rate %q: %w", cfg.TaxRate, err)
	}
	rules := Rules{
		DisplayCurrency:       code,
		Rates:                 money.DefaultRates(),
		FreeShippingThreshold: money.New(cfg.FreeShippingThreshold, money.Base),
		FlatShippingFee:       money.New(cfg.FlatShippingFee, money.Base),
		TaxRate:               taxRate,
	}
	return rules, rules.Validate()
}

// Validate checks the rate table and the tax rate bounds
func (r Rules) Validate() error {
	if !r.DisplayCurrency.Valid() {
		return &money.UnknownCurrencyError{Code: r.DisplayCurrency}
	}
	if err := r.Rates.Validate(); err != nil {
		return err
	}
	if r.TaxRate.IsNegative() || r.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be within [0, 1], got %s", r.TaxRate)
	}
	return nil
}

// Totals are the checkout amounts in the display currency
type Totals struct {
	Subtotal   money.Money `json:"subtotal"`
	Shipping   money.Money `json:"shipping"`
	Tax        money.Money `json:"tax"`
	GrandTotal money.Money `json:"grandTotal"`
}

// ComputeTotals converts the base-currency cart total into the display currency and applies
// shipping and tax. All arithmetic stays unrounded; each component is rounded for display and the
// grand total is rounded once from the unrounded sum, so it can differ from the sum of the
// displayed components by one minor unit.
func ComputeTotals(cartTotal money.Money, rules Rules) (Totals, error) {
	to := rules.DisplayCurrency

	subtotal, err := money.ConvertExact(cartTotal, to, rules.Rates)
	if err != nil {
		return Totals{}, fmt.Errorf("convert subtotal: %w", err)
	}
	threshold, err := money.ConvertExact(rules.FreeShippingThreshold, to, rules.Rates)
	if err != nil {
		return Totals{}, fmt.Errorf("convert shipping threshold: %w", err)
	}

	shipping := decimal.Zero
	if subtotal.LessThan(threshold) {
		shipping, err = money.ConvertExact(rules.FlatShippingFee, to, rules.Rates)
		if err != nil {
			return Totals{}, fmt.Errorf("convert shipping fee: %w", err)
		}
	}

	tax := subtotal.Mul(rules.TaxRate)
	grand := subtotal.Add(shipping).Add(tax)

	return Totals{
		Subtotal:   money.FromMajor(subtotal, to),
		Shipping:   money.FromMajor(shipping, to),
		Tax:        money.FromMajor(tax, to),
		GrandTotal: money.FromMajor(grand, to),
	}, nil
}
