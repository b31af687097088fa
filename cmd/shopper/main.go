// cmd/shopper/main.go
//
// shopper drives the storefront core against a running API: it loads the catalog, optionally signs
// in, fills the cart with trending products and prints the checkout totals.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/pkg/apiclient"
	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/fankick/storefront/internal/pkg/money"
	"github.com/fankick/storefront/internal/storefront/cart"
	"github.com/fankick/storefront/internal/storefront/catalog"
	"github.com/fankick/storefront/internal/storefront/checkout"
	"github.com/fankick/storefront/internal/storefront/likes"
	"github.com/fankick/storefront/internal/storefront/session"
	"github.com/sirupsen/logrus"
)

type options struct {
	apiURL   string
	currency string
	email    string
	password string
	trending int
	search   string
	place    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.apiURL, "api", "", "API base URL (defaults to STOREFRONT_API_URL)")
	flag.StringVar(&opts.currency, "currency", "", "display currency: INR, USD, EUR, GBP or JPY")
	flag.StringVar(&opts.email, "email", "", "sign in with this email")
	flag.StringVar(&opts.password, "password", "", "password for -email")
	flag.IntVar(&opts.trending, "trending", 3, "add this many trending products to the cart")
	flag.StringVar(&opts.search, "search", "", "list products matching this query")
	flag.BoolVar(&opts.place, "place", false, "place a cash-on-delivery order for the cart")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if opts.apiURL != "" {
		cfg.Storefront.APIBaseURL = opts.apiURL
	}
	if opts.currency != "" {
		cfg.Storefront.DisplayCurrency = opts.currency
	}

	log := logger.New(cfg)
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logrus.NewEntry(log), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "shopper: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, entry *logrus.Entry, out io.Writer) error {
	rules, err := checkout.RulesFromConfig(cfg.Storefront)
	if err != nil {
		return err
	}

	client := apiclient.NewFromConfig(cfg, entry)
	products := catalog.NewStore(client, entry)
	if err := products.Load(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Catalog: %d products\n", len(products.Products()))

	if opts.search != "" {
		for _, p := range products.Search(opts.search) {
			price, err := money.Convert(money.New(p.BasePrice, money.Base), rules.DisplayCurrency, rules.Rates)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-32s %-12s %s\n", p.Name, p.Category, money.Format(price))
		}
	}

	sessions := session.NewStore(client, entry)
	client.SetTokenSource(sessions)
	basket := cart.NewStore(entry)

	if opts.email != "" {
		user, err := sessions.Login(ctx, session.Credentials{Email: opts.email, Password: opts.password})
		if err != nil {
			return err
		}
		basket.SetOwner(user.ID)
		fmt.Fprintf(out, "Signed in as %s\n", user.Email)

		wishlist := likes.NewStore(client, sessions, entry)
		if err := wishlist.Refresh(ctx); err != nil {
			entry.WithError(err).Warn("Could not load wishlist")
		} else {
			fmt.Fprintf(out, "Wishlist: %d products\n", len(wishlist.Liked()))
		}
		defer func() {
			if err := sessions.Logout(context.Background()); err != nil {
				entry.WithError(err).Warn("Logout failed")
			}
		}()
	}

	for _, p := range products.GetTrending(opts.trending) {
		variant, ok := firstInStock(p)
		if !ok {
			continue
		}
		if _, err := basket.AddToCart(p, variant, 1); err != nil {
			entry.WithError(err).WithField("product_id", p.ID).Warn("Could not add product")
			continue
		}
		fmt.Fprintf(out, "Added %s (%s)\n", p.Name, variant.SKU)
	}

	totals, err := checkout.ComputeTotals(basket.TotalPrice(), rules)
	if err != nil {
		return err
	}
	printTotals(out, basket.TotalItems(), totals)

	if !opts.place || basket.Snapshot().IsEmpty() {
		return nil
	}
	return placeOrder(ctx, cfg, basket, rules, entry, out)
}

func placeOrder(ctx context.Context, cfg *config.Config, basket *cart.Store, rules checkout.Rules, entry *logrus.Entry, out io.Writer) error {
	flow := checkout.NewFlow(basket, checkout.SimulatedPlacer{Delay: cfg.Storefront.SimulatedOrderDelay}, rules, entry)

	err := flow.SubmitAddress(checkout.Address{
		FullName:   "Demo Shopper",
		Phone:      "9876543210",
		Line1:      "1 Stadium Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Country:    "India",
	})
	if err != nil {
		return err
	}

	if err := flow.SubmitPayment(checkout.Payment{Method: checkout.PaymentCOD}); err != nil {
		if errors.Is(err, checkout.ErrCODUnavailable) {
			fmt.Fprintln(out, "Cash on delivery is not available for this cart")
			return nil
		}
		return err
	}

	summary, err := flow.Review()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Estimated delivery: %d days\n", summary.EstimatedDeliveryDays)

	confirmation, err := flow.PlaceOrder(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Order %s placed at %s\n", confirmation.OrderID, confirmation.PlacedAt.Format("15:04:05"))
	return nil
}

func firstInStock(p catalog.Product) (catalog.Variant, bool) {
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return v, true
		}
	}
	return catalog.Variant{}, false
}

func printTotals(out io.Writer, items int, totals checkout.Totals) {
	fmt.Fprintf(out, "\nItems:       %d\n", items)
	fmt.Fprintf(out, "Subtotal:    %s\n", money.Format(totals.Subtotal))
	fmt.Fprintf(out, "Shipping:    %s\n", money.Format(totals.Shipping))
	fmt.Fprintf(out, "Tax:         %s\n", money.Format(totals.Tax))
	fmt.Fprintf(out, "Grand total: %s\n", money.Format(totals.GrandTotal))
}
