package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"coffeeshop/backend/internal/domain"
)

func TestApplySaleDecrementsStock(t *testing.T) {
	databaseURL := os.Getenv("COFFEESHOP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set COFFEESHOP_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	name := fmt.Sprintf("Americano IT %d", stamp)

	product, err := s.InsertProduct(ctx, domain.Product{Name: name, Price: 25000, Category: "Kopi", Stock: 10})
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}

	var txID int64
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	sale := domain.Transaction{
		TotalAmount:  50000,
		Type:         domain.TxTypeIn,
		ItemsSummary: fmt.Sprintf("2x %s", name),
		Note:         "Sales",
	}
	created, err := s.ApplySale(ctx, sale, []domain.StockDecrement{
		{ProductID: product.ID, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("apply sale: %v", err)
	}
	txID = created.ID

	got, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 8 {
		t.Fatalf("expected stock 8 after sale, got %d", got.Stock)
	}

	var txType string
	var total int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT type, total_amount
		FROM transactions
		WHERE id = $1
	`, txID).Scan(&txType, &total); err != nil {
		t.Fatalf("query transaction: %v", err)
	}
	if txType != domain.TxTypeIn || total != 50000 {
		t.Fatalf("expected IN 50000, got %s %d", txType, total)
	}
}

func TestApplyRestockIncrementsStockIntegration(t *testing.T) {
	databaseURL := os.Getenv("COFFEESHOP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set COFFEESHOP_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	name := fmt.Sprintf("Cafe Latte IT %d", stamp)

	product, err := s.InsertProduct(ctx, domain.Product{Name: name, Price: 28000, Category: "Kopi", Stock: 10})
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}

	var txID int64
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	restock := domain.Transaction{
		TotalAmount:  500000,
		Type:         domain.TxTypeOut,
		ItemsSummary: fmt.Sprintf("Restock: 50x %s", name),
		Note:         "Restock Modal",
	}
	created, updated, err := s.ApplyRestock(ctx, restock, product.ID, 50)
	if err != nil {
		t.Fatalf("apply restock: %v", err)
	}
	txID = created.ID

	if updated.Stock != 60 {
		t.Fatalf("expected stock 60 after restock, got %d", updated.Stock)
	}
}
