// Package cart holds the in-progress order for a single session. Quantities
// are capped by the live stock of each product, re-read from the catalog on
// every add so a restock or sale elsewhere moves the ceiling immediately.
package cart

import (
	"context"
	"errors"
	"sync"

	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/store"
)

type Cart struct {
	mu      sync.Mutex
	catalog store.Catalog
	lines   []domain.CartLine
	feed    store.ChangeFeed
}

func New(catalog store.Catalog) *Cart {
	return &Cart{catalog: catalog}
}

// Add puts one unit of the product into the cart. It returns false without an
// error when the product is out of stock or the cart already holds the full
// available quantity. The refusal carries no detail, matching the register
// flow where the button simply does nothing.
func (c *Cart) Add(ctx context.Context, productID int64) (bool, error) {
	product, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, store.ErrNotFound
		}
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOfLocked(productID)
	current := 0
	if idx >= 0 {
		current = c.lines[idx].Quantity
	}
	if current+1 > product.Stock {
		return false, nil
	}

	if idx >= 0 {
		// Refresh the snapshot so a price edit between adds is reflected.
		c.lines[idx].Product = *product
		c.lines[idx].Quantity++
	} else {
		c.lines = append(c.lines, domain.CartLine{Product: *product, Quantity: 1})
	}

	c.feed.Broadcast()
	return true, nil
}

// Remove takes one unit off the product's line, dropping the line when it
// reaches zero. Removing a product that is not in the cart is a no-op.
func (c *Cart) Remove(productID int64) {
	c.mu.Lock()

	idx := c.indexOfLocked(productID)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	if c.lines[idx].Quantity > 1 {
		c.lines[idx].Quantity--
	} else {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	}
	c.mu.Unlock()

	c.feed.Broadcast()
}

func (c *Cart) Clear() {
	c.mu.Lock()
	changed := len(c.lines) > 0
	c.lines = nil
	c.mu.Unlock()

	if changed {
		c.feed.Broadcast()
	}
}

// Lines returns the cart contents in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]domain.CartLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}

func (c *Cart) Subtotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subtotal(c.lines)
}

func (c *Cart) State() domain.CartState {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]domain.CartLine, len(c.lines))
	copy(lines, c.lines)
	return domain.CartState{Lines: lines, Subtotal: subtotal(lines)}
}

func (c *Cart) Watch() (<-chan struct{}, func()) {
	return c.feed.Subscribe()
}

func (c *Cart) indexOfLocked(productID int64) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func subtotal(lines []domain.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Product.Price * int64(line.Quantity)
	}
	return total
}
