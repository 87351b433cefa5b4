package cart

import (
	"context"
	"errors"
	"testing"

	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/store"
	"coffeeshop/backend/internal/store/memory"
)

func seedCatalog(t *testing.T, products ...domain.Product) (*memory.Store, []domain.Product) {
	t.Helper()
	s := memory.New()
	created := make([]domain.Product, 0, len(products))
	for _, p := range products {
		saved, err := s.InsertProduct(context.Background(), p)
		if err != nil {
			t.Fatalf("seed product: %v", err)
		}
		created = append(created, *saved)
	}
	return s, created
}

func TestAddAccumulatesQuantity(t *testing.T) {
	catalog, products := seedCatalog(t, domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 10})
	c := New(catalog)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		added, err := c.Add(ctx, products[0].ID)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if !added {
			t.Fatalf("expected add %d to succeed", i+1)
		}
	}

	lines := c.Lines()
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("expected one line with qty 3, got %+v", lines)
	}
	if got := c.Subtotal(); got != 75000 {
		t.Fatalf("expected subtotal 75000, got %d", got)
	}
}

func TestAddStopsAtStockCeiling(t *testing.T) {
	catalog, products := seedCatalog(t, domain.Product{Name: "Croissant", Price: 22000, Category: "Makanan", Stock: 2})
	c := New(catalog)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		added, err := c.Add(ctx, products[0].ID)
		if err != nil || !added {
			t.Fatalf("add %d: added=%v err=%v", i+1, added, err)
		}
	}

	added, err := c.Add(ctx, products[0].ID)
	if err != nil {
		t.Fatalf("add past ceiling: %v", err)
	}
	if added {
		t.Fatalf("expected refusal once cart quantity equals stock")
	}
	if lines := c.Lines(); lines[0].Quantity != 2 {
		t.Fatalf("expected quantity to stay at 2, got %d", lines[0].Quantity)
	}
}

func TestAddZeroStockRefused(t *testing.T) {
	catalog, products := seedCatalog(t, domain.Product{Name: "Teh Tarik", Price: 18000, Category: "Teh", Stock: 0})
	c := New(catalog)

	added, err := c.Add(context.Background(), products[0].ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added {
		t.Fatalf("expected refusal for zero-stock product")
	}
	if len(c.Lines()) != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestAddUnknownProduct(t *testing.T) {
	catalog, _ := seedCatalog(t)
	c := New(catalog)

	_, err := c.Add(context.Background(), 404)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddSeesRestockedCeiling(t *testing.T) {
	catalog, products := seedCatalog(t, domain.Product{Name: "Matcha Latte", Price: 32000, Category: "Non-Kopi", Stock: 1})
	c := New(catalog)
	ctx := context.Background()

	if added, _ := c.Add(ctx, products[0].ID); !added {
		t.Fatalf("expected first add to succeed")
	}
	if added, _ := c.Add(ctx, products[0].ID); added {
		t.Fatalf("expected refusal at stock 1")
	}

	p := products[0]
	p.Stock = 5
	if _, err := catalog.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("update product: %v", err)
	}

	added, err := c.Add(ctx, products[0].ID)
	if err != nil {
		t.Fatalf("add after restock: %v", err)
	}
	if !added {
		t.Fatalf("expected add to succeed against raised stock")
	}
}

func TestRemoveDecrementsAndDrops(t *testing.T) {
	catalog, products := seedCatalog(t, domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 10})
	c := New(catalog)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Add(ctx, products[0].ID); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	c.Remove(products[0].ID)
	if lines := c.Lines(); len(lines) != 1 || lines[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %+v", lines)
	}

	c.Remove(products[0].ID)
	if lines := c.Lines(); len(lines) != 0 {
		t.Fatalf("expected line dropped at zero, got %+v", lines)
	}
}

func TestRemoveAbsentProductIsNoOp(t *testing.T) {
	catalog, _ := seedCatalog(t)
	c := New(catalog)

	c.Remove(123)
	if len(c.Lines()) != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestClearEmptiesCart(t *testing.T) {
	catalog, products := seedCatalog(t,
		domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 5},
		domain.Product{Name: "Cafe Latte", Price: 28000, Category: "Kopi", Stock: 5},
	)
	c := New(catalog)
	ctx := context.Background()

	for _, p := range products {
		if _, err := c.Add(ctx, p.ID); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	c.Clear()
	if len(c.Lines()) != 0 || c.Subtotal() != 0 {
		t.Fatalf("expected empty cart after clear")
	}

	// Clearing an empty cart stays a no-op.
	c.Clear()
	if len(c.Lines()) != 0 {
		t.Fatalf("expected cart to stay empty")
	}
}

func TestStatePreservesInsertionOrder(t *testing.T) {
	catalog, products := seedCatalog(t,
		domain.Product{Name: "Cafe Latte", Price: 28000, Category: "Kopi", Stock: 5},
		domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 5},
	)
	c := New(catalog)
	ctx := context.Background()

	for _, p := range products {
		if _, err := c.Add(ctx, p.ID); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	state := c.State()
	if len(state.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(state.Lines))
	}
	if state.Lines[0].Product.Name != "Cafe Latte" || state.Lines[1].Product.Name != "Americano" {
		t.Fatalf("expected insertion order, got %+v", state.Lines)
	}
	if state.Subtotal != 53000 {
		t.Fatalf("expected subtotal 53000, got %d", state.Subtotal)
	}
}
