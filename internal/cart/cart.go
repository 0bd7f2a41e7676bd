package cart

import (
	"math"

	"storefront/internal/errs"
	"storefront/internal/model"
)

// Entry is a copy of a product taken when it was added. Entries have no
// identity beyond their position.
type Entry struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Cart is an ordered list of entries in insertion order. It is not safe for
// concurrent use; the owning session serializes access.
type Cart struct {
	entries []Entry
}

func New() *Cart {
	return &Cart{}
}

// Add appends a copy of p. Adding the same product twice yields two entries.
func (c *Cart) Add(p model.Product) {
	c.entries = append(c.entries, Entry{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
	})
}

// RemoveAt removes the entry at index and shifts later entries down by one.
// An out of range index leaves the cart untouched.
func (c *Cart) RemoveAt(index int) error {
	if index < 0 || index >= len(c.entries) {
		return errs.Newf(errs.KindIndexOutOfRange, "%s: %d", errs.ErrMsgIndexOutOfRange, index)
	}
	c.entries = append(c.entries[:index], c.entries[index+1:]...)
	return nil
}

// Fits reports whether an entry priced price can be added without the
// total overflowing int64.
func (c *Cart) Fits(price int64) bool {
	if price < 0 {
		return true
	}
	return c.Total() <= math.MaxInt64-price
}

// Total is the exact sum of entry prices.
func (c *Cart) Total() int64 {
	var total int64
	for _, e := range c.entries {
		total += e.Price
	}
	return total
}

func (c *Cart) Count() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in cart order.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Cart) Clear() {
	c.entries = nil
}
