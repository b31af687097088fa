package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/pkg/money"
	"github.com/fankick/storefront/internal/storefront/cart"
	"github.com/fankick/storefront/internal/storefront/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioRules() Rules {
	return Rules{
		DisplayCurrency: money.USD,
		Rates: money.RateTable{
			money.INR: decimal.NewFromInt(1),
			money.USD: decimal.RequireFromString("0.012"),
		},
		FreeShippingThreshold: money.New(200000, money.INR),
		FlatShippingFee:       money.New(9900, money.INR),
		TaxRate:               decimal.RequireFromString("0.18"),
	}
}

func TestComputeTotalsScenario(t *testing.T) {
	totals, err := ComputeTotals(money.New(200000, money.INR), scenarioRules())
	require.NoError(t, err)

	assert.Equal(t, money.New(2400, money.USD), totals.Subtotal)
	assert.Equal(t, money.New(0, money.USD), totals.Shipping)
	assert.Equal(t, money.New(432, money.USD), totals.Tax)
	assert.Equal(t, money.New(2832, money.USD), totals.GrandTotal)
}

func TestComputeTotalsChargesShippingBelowThreshold(t *testing.T) {
	totals, err := ComputeTotals(money.New(100000, money.INR), scenarioRules())
	require.NoError(t, err)

	assert.Equal(t, int64(1200), totals.Subtotal.Amount)
	// ₹99 * 0.012 = $1.188
	assert.Equal(t, int64(119), totals.Shipping.Amount)
	assert.Equal(t, int64(216), totals.Tax.Amount)
	// 12 + 1.188 + 2.16 = 15.348
	assert.Equal(t, int64(1535), totals.GrandTotal.Amount)
}

func TestComputeTotalsRoundsGrandTotalOnce(t *testing.T) {
	rules := scenarioRules()
	rules.DisplayCurrency = money.INR
	rules.TaxRate = decimal.RequireFromString("0.125")
	rules.FreeShippingThreshold = money.New(0, money.INR)

	// tax 0.125 * 1.01 = 0.12625 → 0.13 displayed, grand 1.13625 → 1.14
	totals, err := ComputeTotals(money.New(101, money.INR), rules)
	require.NoError(t, err)
	assert.Equal(t, int64(13), totals.Tax.Amount)
	assert.Equal(t, int64(114), totals.GrandTotal.Amount)
}

func TestComputeTotalsUnknownCurrency(t *testing.T) {
	rules := scenarioRules()
	rules.DisplayCurrency = money.EUR

	_, err := ComputeTotals(money.New(100, money.INR), rules)
	var unknown *money.UnknownCurrencyError
	assert.True(t, errors.As(err, &unknown))
}

func TestRulesFromConfig(t *testing.T) {
	rules, err := RulesFromConfig(config.StorefrontConfig{
		DisplayCurrency:       "usd",
		FreeShippingThreshold: 99900,
		FlatShippingFee:       9900,
		TaxRate:               "0.18",
	})
	require.NoError(t, err)
	assert.Equal(t, money.USD, rules.DisplayCurrency)
	assert.True(t, rules.TaxRate.Equal(decimal.RequireFromString("0.18")))

	_, err = RulesFromConfig(config.StorefrontConfig{DisplayCurrency: "INR", TaxRate: "1.5"})
	assert.Error(t, err)
	_, err = RulesFromConfig(config.StorefrontConfig{DisplayCurrency: "XXX", TaxRate: "0.1"})
	assert.Error(t, err)
}

type recordingPlacer struct {
	err    error
	orders []Order
}

func (p *recordingPlacer) PlaceOrder(ctx context.Context, order Order) (Confirmation, error) {
	p.orders = append(p.orders, order)
	if p.err != nil {
		return Confirmation{}, p.err
	}
	return Confirmation{OrderID: "FK-TEST", PlacedAt: time.Now()}, nil
}

func validAddress() Address {
	return Address{
		FullName: "Asha Rao", Phone: "9876543210", Line1: "12 MG Road",
		City: "Bengaluru", State: "Karnataka", PostalCode: "560001", Country: "India",
	}
}

func filledCart(t *testing.T, cod bool) *cart.Store {
	t.Helper()
	variant := catalog.Variant{ID: "v1", Price: 100000, Stock: 10, SKU: "JRS-M"}
	scarf := catalog.Variant{ID: "v2", Price: 50000, Stock: 4, SKU: "SCF"}
	store := cart.NewStore(nil)
	_, err := store.AddToCart(catalog.Product{ID: "p1", Name: "Jersey", ShippingDays: 3, CODAvailable: true,
		Variants: []catalog.Variant{variant}}, variant, 2)
	require.NoError(t, err)
	_, err = store.AddToCart(catalog.Product{ID: "p2", Name: "Scarf", ShippingDays: 7, CODAvailable: cod,
		Variants: []catalog.Variant{scarf}}, scarf, 1)
	require.NoError(t, err)
	return store
}

func flowAtReview(t *testing.T, c *cart.Store, placer OrderPlacer) *Flow {
	t.Helper()
	flow := NewFlow(c, placer, scenarioRules(), nil)
	require.NoError(t, flow.SubmitAddress(validAddress()))
	require.NoError(t, flow.SubmitPayment(Payment{Method: PaymentUPI, UPIID: "asha@upi"}))
	require.Equal(t, StepReview, flow.Step())
	return flow
}

func TestAddressValidation(t *testing.T) {
	flow := NewFlow(cart.NewStore(nil), &recordingPlacer{}, scenarioRules(), nil)

	bad := validAddress()
	bad.City = "   "
	assert.Error(t, flow.SubmitAddress(bad))
	assert.Equal(t, StepAddress, flow.Step())

	require.NoError(t, flow.SubmitAddress(validAddress()))
	assert.Equal(t, StepPayment, flow.Step())
}

func TestPaymentValidation(t *testing.T) {
	c := filledCart(t, false)
	flow := NewFlow(c, &recordingPlacer{}, scenarioRules(), nil)
	require.NoError(t, flow.SubmitAddress(validAddress()))

	assert.Error(t, flow.SubmitPayment(Payment{Method: "bitcoin"}))
	assert.Error(t, flow.SubmitPayment(Payment{Method: PaymentCard, CardHolder: "Asha"}))
	assert.Error(t, flow.SubmitPayment(Payment{Method: PaymentUPI}))
	assert.ErrorIs(t, flow.SubmitPayment(Payment{Method: PaymentCOD}), ErrCODUnavailable)
	assert.Equal(t, StepPayment, flow.Step())

	require.NoError(t, flow.SubmitPayment(Payment{
		Method: PaymentCard, CardHolder: "Asha Rao", CardNumber: "4111 1111 1111 1111",
		CardExpiry: "12/29", CardCVV: "123",
	}))
	assert.Equal(t, StepReview, flow.Step())
}

func TestCODAllowedWhenEveryLineSupportsIt(t *testing.T) {
	flow := NewFlow(filledCart(t, true), &recordingPlacer{}, scenarioRules(), nil)
	require.NoError(t, flow.SubmitAddress(validAddress()))
	require.NoError(t, flow.SubmitPayment(Payment{Method: PaymentCOD}))
	assert.Equal(t, StepReview, flow.Step())
}

func TestBackNavigation(t *testing.T) {
	flow := flowAtReview(t, filledCart(t, true), &recordingPlacer{})

	require.NoError(t, flow.Back())
	assert.Equal(t, StepPayment, flow.Step())
	require.NoError(t, flow.Back())
	assert.Equal(t, StepAddress, flow.Step())
	assert.ErrorIs(t, flow.Back(), ErrInvalidTransition)
}

func TestReviewSummary(t *testing.T) {
	flow := flowAtReview(t, filledCart(t, true), &recordingPlacer{})

	summary, err := flow.Review()
	require.NoError(t, err)
	assert.Len(t, summary.Lines, 2)
	assert.Equal(t, 7, summary.EstimatedDeliveryDays)
	// ₹2,500 → $30.00, over the free-shipping threshold
	assert.Equal(t, money.New(3000, money.USD), summary.Totals.Subtotal)
	assert.True(t, summary.Totals.Shipping.IsZero())

	require.NoError(t, flow.SetDisplayCurrency(money.INR))
	summary, err = flow.Review()
	require.NoError(t, err)
	assert.Equal(t, money.New(250000, money.INR), summary.Totals.Subtotal)
}

func TestPlaceOrderSuccessClearsCart(t *testing.T) {
	c := filledCart(t, true)
	placer := &recordingPlacer{}
	flow := NewFlow(c, placer, scenarioRules(), nil)
	require.NoError(t, flow.SubmitAddress(validAddress()))
	require.NoError(t, flow.SubmitPayment(Payment{
		Method: PaymentCard, CardHolder: "Asha Rao", CardNumber: "4111111111111111",
		CardExpiry: "12/29", CardCVV: "123",
	}))

	confirmation, err := flow.PlaceOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FK-TEST", confirmation.OrderID)
	assert.Equal(t, StepSuccess, flow.Step())
	assert.True(t, c.Snapshot().IsEmpty())

	require.Len(t, placer.orders, 1)
	assert.Equal(t, "************1111", placer.orders[0].Payment.CardNumber)
	assert.Empty(t, placer.orders[0].Payment.CardCVV)

	_, err = flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, flow.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, flow.SubmitAddress(validAddress()), ErrInvalidTransition)
	_, err = flow.Retry()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPlaceOrderFailureKeepsCart(t *testing.T) {
	c := filledCart(t, true)
	before := c.Snapshot()
	cause := errors.New("gateway timeout")
	placer := &recordingPlacer{err: cause}
	flow := flowAtReview(t, c, placer)

	_, err := flow.PlaceOrder(context.Background())
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StepFailed, flow.Step())
	assert.Equal(t, before, c.Snapshot())
	assert.ErrorIs(t, flow.Err(), cause)

	_, err = flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	placer.err = nil
	retry, err := flow.Retry()
	require.NoError(t, err)
	assert.Equal(t, StepReview, retry.Step())
	_, err = retry.PlaceOrder(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Snapshot().IsEmpty())
	assert.Equal(t, StepFailed, flow.Step())
}

func TestPlaceOrderEmptyCartStaysOnReview(t *testing.T) {
	c := filledCart(t, true)
	placer := &recordingPlacer{}
	flow := flowAtReview(t, c, placer)
	c.ClearCart()

	_, err := flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StepReview, flow.Step())
	assert.Empty(t, placer.orders)
}

func TestSimulatedPlacer(t *testing.T) {
	conf, err := SimulatedPlacer{}.PlaceOrder(context.Background(), Order{})
	require.NoError(t, err)
	assert.NotEmpty(t, conf.OrderID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = SimulatedPlacer{Delay: time.Second}.PlaceOrder(ctx, Order{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cause := errors.New("declined")
	_, err = SimulatedPlacer{Fail: cause}.PlaceOrder(context.Background(), Order{})
	assert.ErrorIs(t, err, cause)
}

func TestPlaceOrderRechecksCODAgainstCart(t *testing.T) {
	c := filledCart(t, true)
	placer := &recordingPlacer{}
	flow := NewFlow(c, placer, scenarioRules(), nil)
	require.NoError(t, flow.SubmitAddress(validAddress()))
	require.NoError(t, flow.SubmitPayment(Payment{Method: PaymentCOD}))

	mug := catalog.Variant{ID: "v3", Price: 30000, Stock: 5, SKU: "MUG"}
	_, err := c.AddToCart(catalog.Product{ID: "p3", Name: "Mug", ShippingDays: 2, CODAvailable: false,
		Variants: []catalog.Variant{mug}}, mug, 1)
	require.NoError(t, err)

	_, err = flow.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrCODUnavailable)
	assert.Equal(t, StepReview, flow.Step())
	assert.Empty(t, placer.orders)
	assert.Len(t, c.Snapshot().Lines, 3)

	require.NoError(t, flow.SubmitPayment(Payment{Method: PaymentUPI, UPIID: "asha@upi"}))
	_, err = flow.PlaceOrder(context.Background())
	require.NoError(t, err)
	require.Len(t, placer.orders, 1)
	assert.Equal(t, PaymentUPI, placer.orders[0].Payment.Method)
}

func TestCartSubscriberCanReadFlowDuringPlaceOrder(t *testing.T) {
	c := filledCart(t, true)
	flow := flowAtReview(t, c, &recordingPlacer{})

	var seen []Step
	unsubscribe := c.Subscribe(func(cart.State) { seen = append(seen, flow.Step()) })
	defer unsubscribe()

	done := make(chan error, 1)
	go func() {
		_, err := flow.PlaceOrder(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("PlaceOrder did not return")
	}
	assert.Equal(t, []Step{StepSuccess}, seen)
	assert.True(t, c.Snapshot().IsEmpty())
}
