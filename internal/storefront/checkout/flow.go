// Package checkout drives the address, payment, review and submission steps over the cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/fankick/storefront/internal/pkg/money"
	"github.com/fankick/storefront/internal/storefront/cart"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Step is a checkout state
type Step string

const (
	StepAddress    Step = "address"
	StepPayment    Step = "payment"
	StepReview     Step = "review"
	StepSubmitting Step = "submitting"
	StepSuccess    Step = "success"
	StepFailed     Step = "failed"
)

// Terminal reports whether no further transitions are allowed
func (s Step) Terminal() bool {
	return s == StepSuccess || s == StepFailed
}

var (
	ErrEmptyCart         = errors.New("checkout: cart is empty")
	ErrInvalidTransition = errors.New("checkout: invalid transition")
	ErrCODUnavailable    = errors.New("checkout: cash on delivery is not available for every item")
)

// SubmissionError is returned when the order could not be placed. The cart is left untouched.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("checkout: order submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Address is the shipping address
type Address struct {
	FullName   string `json:"fullName" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Email      string `json:"email" validate:"omitempty,email"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,alphanum,min=4,max=10"`
	Country    string `json:"country" validate:"required,max=100"`
}

// PaymentMethod is how the shopper pays
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCOD  PaymentMethod = "cod"
)

// Payment carries the method and its method-specific fields
type Payment struct {
	Method     PaymentMethod `json:"method" validate:"required,oneof=card upi cod"`
	CardHolder string        `json:"cardHolder,omitempty" validate:"required_if=Method card"`
	CardNumber string        `json:"cardNumber,omitempty" validate:"required_if=Method card,omitempty,numeric,min=12,max=19"`
	CardExpiry string        `json:"cardExpiry,omitempty" validate:"required_if=Method card,omitempty,len=5"`
	CardCVV    string        `json:"cardCvv,omitempty" validate:"required_if=Method card,omitempty,numeric,min=3,max=4"`
	UPIID      string        `json:"upiId,omitempty" validate:"required_if=Method upi,omitempty,contains=@"`
}

// masked hides everything but the last four card digits
func (p Payment) masked() Payment {
	if n := len(p.CardNumber); n > 4 {
		p.CardNumber = strings.Repeat("*", n-4) + p.CardNumber[n-4:]
	}
	p.CardCVV = ""
	return p
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Cart is the subset of the cart store checkout needs
type Cart interface {
	Snapshot() cart.State
	ClearCart()
}

// Summary is what the review step shows
type Summary struct {
	Lines                 []cart.Line
	Totals                Totals
	Address               Address
	Payment               Payment
	EstimatedDeliveryDays int
}

// Flow is one checkout attempt. It is safe for concurrent use.
type Flow struct {
	cart   Cart
	placer OrderPlacer
	log    *logrus.Entry

	mu           sync.Mutex
	rules        Rules
	step         Step
	address      Address
	payment      Payment
	confirmation *Confirmation
	lastErr      error
}

// NewFlow starts a checkout at the address step
func NewFlow(c Cart, placer OrderPlacer, rules Rules, log *logrus.Entry) *Flow {
	return &Flow{
		cart:   c,
		placer: placer,
		rules:  rules,
		log:    logger.OrDiscard(log).WithField("component", "checkout"),
		step:   StepAddress,
	}
}

// Step returns the current state
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Err returns the error that moved the flow to failed
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Confirmation returns the placed order once the flow succeeded
func (f *Flow) Confirmation() (Confirmation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmation == nil {
		return Confirmation{}, false
	}
	return *f.confirmation, true
}

// SetDisplayCurrency switches the currency totals are shown in
func (f *Flow) SetDisplayCurrency(code money.Code) error {
	if !code.Valid() {
		return &money.UnknownCurrencyError{Code: code}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step.Terminal() || f.step == StepSubmitting {
		return f.invalid("change currency")
	}
	f.rules.DisplayCurrency = code
	return nil
}

// SubmitAddress validates the address and moves to payment
func (f *Flow) SubmitAddress(addr Address) error {
	addr = trimAddress(addr)
	if err := validate.Struct(addr); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepAddress && f.step != StepPayment && f.step != StepReview {
		return f.invalid("submit address")
	}
	f.address = addr
	f.step = StepPayment
	return nil
}

// SubmitPayment validates the payment details and moves to review. Cash on delivery is only
// accepted when every line in the cart allows it.
func (f *Flow) SubmitPayment(p Payment) error {
	p.Method = PaymentMethod(strings.ToLower(strings.TrimSpace(string(p.Method))))
	p.CardNumber = strings.ReplaceAll(p.CardNumber, " ", "")
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid payment: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepPayment && f.step != StepReview {
		return f.invalid("submit payment")
	}
	if err := codEligible(p, f.cart.Snapshot()); err != nil {
		return err
	}
	f.payment = p
	f.step = StepReview
	return nil
}

// Back returns to the previous editable step
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepReview:
		f.step = StepPayment
	case StepPayment:
		f.step = StepAddress
	default:
		return f.invalid("go back")
	}
	return nil
}

// Review summarizes the cart in the display currency
func (f *Flow) Review() (Summary, error) {
	f.mu.Lock()
	rules, addr, payment := f.rules, f.address, f.payment
	f.mu.Unlock()

	return summarize(f.cart.Snapshot(), rules, addr, payment)
}

// PlaceOrder submits the order. On success the cart is cleared; on failure the flow ends in
// failed with the cart untouched and a SubmissionError is returned. An empty cart, or a cash on
// delivery payment over a line that no longer allows it, keeps the flow at review.
func (f *Flow) PlaceOrder(ctx context.Context) (Confirmation, error) {
	f.mu.Lock()
	if f.step != StepReview {
		err := f.invalid("place order")
		f.mu.Unlock()
		return Confirmation{}, err
	}
	snapshot := f.cart.Snapshot()
	if snapshot.IsEmpty() {
		f.mu.Unlock()
		return Confirmation{}, ErrEmptyCart
	}
	if err := codEligible(f.payment, snapshot); err != nil {
		f.mu.Unlock()
		return Confirmation{}, err
	}
	summary, err := summarize(snapshot, f.rules, f.address, f.payment)
	if err != nil {
		f.mu.Unlock()
		return Confirmation{}, err
	}
	f.step = StepSubmitting
	f.mu.Unlock()

	order := Order{
		OwnerID:               snapshot.OwnerID,
		Lines:                 summary.Lines,
		Totals:                summary.Totals,
		Address:               summary.Address,
		Payment:               summary.Payment.masked(),
		EstimatedDeliveryDays: summary.EstimatedDeliveryDays,
	}

	started := time.Now()
	confirmation, err := f.placer.PlaceOrder(ctx, order)
	if err != nil {
		subErr := &SubmissionError{Err: err}
		f.mu.Lock()
		f.step = StepFailed
		f.lastErr = subErr
		f.mu.Unlock()
		f.log.WithError(err).WithField("user_id", snapshot.OwnerID).Warn("Order submission failed")
		return Confirmation{}, subErr
	}

	f.mu.Lock()
	f.step = StepSuccess
	f.confirmation = &confirmation
	f.mu.Unlock()

	// cart subscribers may read the flow, so clear outside mu
	f.cart.ClearCart()
	f.log.WithFields(logrus.Fields{
		"order_id": confirmation.OrderID,
		"user_id":  snapshot.OwnerID,
		"total":    summary.Totals.GrandTotal.String(),
		"duration": time.Since(started).String(),
	}).Info("Order placed")
	return confirmation, nil
}

// Retry starts a new flow at review with the same address and payment. Only a failed flow can be retried.
func (f *Flow) Retry() (*Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepFailed {
		return nil, f.invalid("retry")
	}
	return &Flow{
		cart:    f.cart,
		placer:  f.placer,
		rules:   f.rules,
		log:     f.log,
		step:    StepReview,
		address: f.address,
		payment: f.payment,
	}, nil
}

// invalid must be called with mu held
func (f *Flow) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, f.step)
}

// codEligible rejects cash on delivery when any line's product does not allow it
func codEligible(p Payment, state cart.State) error {
	if p.Method != PaymentCOD {
		return nil
	}
	for _, line := range state.Lines {
		if !line.CODAvailable {
			return fmt.Errorf("%w: %s", ErrCODUnavailable, line.Name)
		}
	}
	return nil
}

func summarize(state cart.State, rules Rules, addr Address, payment Payment) (Summary, error) {
	totals, err := ComputeTotals(state.TotalPrice, rules)
	if err != nil {
		return Summary{}, err
	}
	days := 0
	for _, line := range state.Lines {
		if line.ShippingDays > days {
			days = line.ShippingDays
		}
	}
	return Summary{
		Lines:                 state.Lines,
		Totals:                totals,
		Address:               addr,
		Payment:               payment,
		EstimatedDeliveryDays: days,
	}, nil
}

func trimAddress(a Address) Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Email = strings.TrimSpace(a.Email)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	return a
}
