// Package cart holds the ephemeral sale-in-progress aggregate. A cart lives
// in process memory only; it has no identity once committed or cleared.
package cart

import (
	"github.com/shopspring/decimal"

	"stoktakip/internal/domain"
	"stoktakip/internal/store"
)

type line struct {
	productName string
	quantity    int
	unitPrice   decimal.Decimal // captured at first addition
}

type Cart struct {
	lines map[int64]*line
	order []int64 // insertion order, for stable display
}

func New() *Cart {
	return &Cart{lines: make(map[int64]*line)}
}

// Add puts one unit of the product in the cart, or bumps the quantity of an
// existing line. The addition is validated against the product's current
// stock: quantity+1 must not exceed it, otherwise ErrInsufficientStock is
// returned and the cart is left unchanged. The unit price is captured the
// first time the product is added and never updated afterwards.
func (c *Cart) Add(product domain.Product) error {
	current := 0
	if l, ok := c.lines[product.ID]; ok {
		current = l.quantity
	}
	if current+1 > product.StockQuantity {
		return store.ErrInsufficientStock
	}

	if l, ok := c.lines[product.ID]; ok {
		l.quantity++
		return nil
	}
	c.lines[product.ID] = &line{
		productName: product.Name,
		quantity:    1,
		unitPrice:   product.SalePrice,
	}
	c.order = append(c.order, product.ID)
	return nil
}

// Remove deletes the whole line for the product; no-op when absent.
func (c *Cart) Remove(productID int64) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear empties the cart; idempotent.
func (c *Cart) Clear() {
	c.lines = make(map[int64]*line)
	c.order = nil
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Quantity reports how many units of the product the cart holds.
func (c *Cart) Quantity(productID int64) int {
	if l, ok := c.lines[productID]; ok {
		return l.quantity
	}
	return 0
}

// Lines returns the cart content in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, 0, len(c.order))
	for _, id := range c.order {
		l := c.lines[id]
		out = append(out, domain.CartLine{
			ProductID:   id,
			ProductName: l.productName,
			Quantity:    l.quantity,
			UnitPrice:   l.unitPrice,
		})
	}
	return out
}

// Total sums quantity x captured unit price over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	return total
}
