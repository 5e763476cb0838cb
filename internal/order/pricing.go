package order

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/evocart/internal/cart"
	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
)

// Pricing holds the flat checkout settings.
type Pricing struct {
	TaxRate  decimal.Decimal
	Shipping decimal.Decimal
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// ComputeTotals rounds tax to two places, half away from zero.
func ComputeTotals(subtotal, shipping, taxRate decimal.Decimal) Totals {
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal:   subtotal.Round(2),
		Shipping:   shipping.Round(2),
		Tax:        tax,
		GrandTotal: subtotal.Add(shipping).Add(tax).Round(2),
	}
}

// Build turns reconciled cart lines into an unsaved order in Pending Payment.
func Build(userID uint, lines []cart.Line, p Pricing) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}

	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", domain.ErrValidation, ln.Product.ID, ln.Quantity)
		}
		total := ln.Product.Price.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		items = append(items, models.OrderItem{
			ProductID:   ln.Product.ID,
			ProductName: ln.Product.Name,
			UnitPrice:   ln.Product.Price,
			Quantity:    ln.Quantity,
			LineTotal:   total,
		})
		subtotal = subtotal.Add(total)
	}

	t := ComputeTotals(subtotal, p.Shipping, p.TaxRate)
	return &models.Order{
		UserID:     userID,
		Subtotal:   t.Subtotal,
		Shipping:   t.Shipping,
		Tax:        t.Tax,
		GrandTotal: t.GrandTotal,
		Status:     string(StatusPendingPayment),
		Items:      items,
	}, nil
}
