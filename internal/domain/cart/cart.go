// Package cart implements the session-scoped shopping cart: line items keyed
// by product, derived totals and persistence of cart state between requests.
package cart

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the quantity of a single line. Larger requests are
// clamped to it.
const MaxLineQuantity = 9999

// LineItem is a single product entry in a cart.
type LineItem struct {
	ID          string
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	Image       string
}

// Subtotal returns price * quantity for the line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Valid reports whether the line may live in a cart: it names a product and
// holds at least one unit.
func (li LineItem) Valid() bool {
	return li.ProductID != "" && li.Quantity > 0
}

// ValidLines drops the lines that are not Valid. It reuses the backing array
// of items.
func ValidLines(items []LineItem) []LineItem {
	return slices.DeleteFunc(items, func(li LineItem) bool { return !li.Valid() })
}

// Candidate describes a product to be added to a cart.
type Candidate struct {
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	// Quantity defaults to 1 when zero or negative and is capped at
	// MaxLineQuantity.
	Quantity int
	Image    string
}

// Repository persists cart snapshots keyed by session.
//
// Load returns an empty slice and no error when nothing is stored for the
// session.
type Repository interface {
	Load(ctx context.Context, sessionID string) ([]LineItem, error)
	Save(ctx context.Context, sessionID string, items []LineItem) error
	Delete(ctx context.Context, sessionID string) error
}

// Total returns the sum of price * quantity over items.
func Total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.Subtotal())
	}
	return sum
}

// ItemCount returns the sum of quantities over items.
func ItemCount(items []LineItem) int {
	n := 0
	for _, li := range items {
		n += li.Quantity
	}
	return n
}

// clampQuantity bounds n to [1, MaxLineQuantity]. Callers handle n <= 0
// before clamping when it carries a different meaning.
func clampQuantity(n int) int {
	return min(max(n, 1), MaxLineQuantity)
}

// addQuantity sums two line quantities without exceeding MaxLineQuantity.
func addQuantity(a, b int) int {
	return clampQuantity(clampQuantity(a) + clampQuantity(b))
}

// healthSessionID is a session key the API never issues: issued sessions
// are UUIDs.
const healthSessionID = "_health"

// HealthCheck returns a readiness check that reads a never-written session
// from repo, exercising the same path as a cart restore.
func HealthCheck(repo Repository) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := repo.Load(ctx, healthSessionID)
		return err
	}
}
