package checkout

import (
	"context"
	"time"

	"github.com/fankick/storefront/internal/storefront/cart"
	"github.com/google/uuid"
)

// Order is what gets submitted
type Order struct {
	OwnerID               string
	Lines                 []cart.Line
	Totals                Totals
	Address               Address
	Payment               Payment
	EstimatedDeliveryDays int
}

// Confirmation identifies a placed order
type Confirmation struct {
	OrderID  string
	PlacedAt time.Time
}

// OrderPlacer submits orders to whatever fulfils them
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order Order) (Confirmation, error)
}

// SimulatedPlacer accepts every order after Delay. Fail, when set, is returned instead.
type SimulatedPlacer struct {
	Delay time.Duration
	Fail  error
}

// PlaceOrder waits for Delay or for ctx to be done
func (p SimulatedPlacer) PlaceOrder(ctx context.Context, order Order) (Confirmation, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Confirmation{}, ctx.Err()
		}
	}
	if p.Fail != nil {
		return Confirmation{}, p.Fail
	}
	return Confirmation{OrderID: "FK-" + uuid.NewString()[:8], PlacedAt: time.Now().UTC()}, nil
}
