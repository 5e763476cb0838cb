package cart

import (
	"slices"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// Cart maps product id to quantity. Every present entry has quantity >= 1.
type Cart map[uint]int

func (c Cart) Add(productID uint, qty int) {
	if qty < 1 {
		qty = 1
	}
	c[productID] = min(c[productID]+qty, MaxQuantity)
}

// SetQuantity replaces the quantity; zero or less removes the line.
func (c Cart) SetQuantity(productID uint, qty int) {
	if qty <= 0 {
		delete(c, productID)
		return
	}
	c[productID] = min(qty, MaxQuantity)
}

func (c Cart) Remove(productID uint) {
	delete(c, productID)
}

func (c Cart) Count() int {
	n := 0
	for _, q := range c {
		n += q
	}
	return n
}

func (c Cart) IDs() []uint {
	ids := make([]uint, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for id, q := range c {
		out[id] = q
	}
	return out
}
