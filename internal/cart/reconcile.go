package cart

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/evocart/internal/models"
)

type Line struct {
	Product  models.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Reconciled struct {
	Lines []Line          `json:"items"`
	Total decimal.Decimal `json:"cart_total"`
	Count int             `json:"cart_count"`
	// Dropped lists cart ids that no longer exist in the catalog.
	Dropped []uint `json:"-"`
}

// Reconcile prices a cart against a catalog snapshot. It returns the cart
// that should be persisted afterwards: the input minus every id the catalog
// no longer knows. Neither input is modified.
func Reconcile(c Cart, products []models.Product) (Cart, Reconciled) {
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	healed := make(Cart, len(c))
	res := Reconciled{Lines: []Line{}, Total: decimal.Zero}
	for _, id := range c.IDs() {
		p, ok := byID[id]
		if !ok {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		qty := c[id]
		sub := p.Price.Mul(decimal.NewFromInt(int64(qty)))

		healed[id] = qty
		res.Lines = append(res.Lines, Line{Product: p, Quantity: qty, Subtotal: sub})
		res.Total = res.Total.Add(sub)
		res.Count += qty
	}
	return healed, res
}
