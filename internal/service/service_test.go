package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coffeeshop/backend/internal/analytics"
	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/ledger"
	"coffeeshop/backend/internal/session"
	"coffeeshop/backend/internal/store"
	"coffeeshop/backend/internal/store/memory"
)

func newTestService(repo store.Repository) (*Service, *session.Manager) {
	sessions := session.NewManager(repo)
	ledgerEngine := ledger.NewEngine(repo)
	analyticsEngine := analytics.NewEngine(repo, nil, 0, time.UTC)
	return New(repo, ledgerEngine, analyticsEngine, sessions), sessions
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{SessionID: "s-test", Username: "admin", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{SessionID: "s-test", Username: "kasir", Role: domain.RoleCashier})
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(memory.New())

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{Name: "Americano", Price: 25000})
	if err == nil || err.Error() != "admin role required" {
		t.Fatalf("expected admin role required, got %v", err)
	}
}

func TestCreateProductValidatesInput(t *testing.T) {
	svc, _ := newTestService(memory.New())

	_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{Name: "  ", Price: 1000})
	if !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}

	created, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{Name: " Americano ", Price: 25000, Category: "Kopi", Stock: 5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.Name != "Americano" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
}

func TestUpdateProductAppliesPartialFields(t *testing.T) {
	repo := memory.New()
	svc, _ := newTestService(repo)

	created, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	newPrice := int64(27000)
	updated, err := svc.UpdateProduct(adminCtx(), created.ID, domain.ProductUpdateRequest{Price: &newPrice})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Price != 27000 || updated.Name != "Americano" || updated.Stock != 5 {
		t.Fatalf("unexpected product after partial update: %+v", updated)
	}
}

func TestCheckoutRecordsSaleAndClearsCart(t *testing.T) {
	repo := memory.New()
	svc, sessions := newTestService(repo)
	ctx := context.Background()

	americano, _ := repo.InsertProduct(ctx, domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 10})
	latte, _ := repo.InsertProduct(ctx, domain.Product{Name: "Latte", Price: 28000, Category: "Kopi", Stock: 10})

	sess := sessions.Create("kasir", domain.RoleCashier)
	for i := 0; i < 2; i++ {
		if added, err := sess.Cart.Add(ctx, americano.ID); err != nil || !added {
			t.Fatalf("add americano: added=%v err=%v", added, err)
		}
	}
	if added, err := sess.Cart.Add(ctx, latte.ID); err != nil || !added {
		t.Fatalf("add latte: added=%v err=%v", added, err)
	}

	result, err := svc.ProcessCheckout(cashierCtx(), sess)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !result.Performed {
		t.Fatalf("expected checkout to be performed")
	}
	if result.Total != 78000 || result.ItemCount != 3 {
		t.Fatalf("expected total 78000 across 3 items, got %+v", result)
	}
	if result.Transaction.Type != domain.TxTypeIn || result.Transaction.Note != "Sales" {
		t.Fatalf("unexpected transaction: %+v", result.Transaction)
	}
	if result.Transaction.ItemsSummary != "2x Americano, 1x Latte" {
		t.Fatalf("unexpected items summary: %q", result.Transaction.ItemsSummary)
	}

	a, _ := repo.GetProduct(ctx, americano.ID)
	l, _ := repo.GetProduct(ctx, latte.ID)
	if a.Stock != 8 || l.Stock != 9 {
		t.Fatalf("expected stocks 8 and 9, got %d and %d", a.Stock, l.Stock)
	}
	if len(sess.Cart.Lines()) != 0 {
		t.Fatalf("expected cart cleared after checkout")
	}
}

func TestCheckoutEmptyCartIsNoOp(t *testing.T) {
	svc, sessions := newTestService(memory.New())
	sess := sessions.Create("kasir", domain.RoleCashier)

	result, err := svc.ProcessCheckout(cashierCtx(), sess)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.Performed {
		t.Fatalf("expected no-op for empty cart")
	}

	txs, _ := svc.Transactions(context.Background(), "")
	if len(txs) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txs))
	}
}

func TestCheckoutStaleProductStillRecorded(t *testing.T) {
	repo := memory.New()
	svc, sessions := newTestService(repo)
	ctx := context.Background()

	americano, _ := repo.InsertProduct(ctx, domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 10})
	croissant, _ := repo.InsertProduct(ctx, domain.Product{Name: "Croissant", Price: 22000, Category: "Makanan", Stock: 5})

	sess := sessions.Create("kasir", domain.RoleCashier)
	if _, err := sess.Cart.Add(ctx, americano.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := sess.Cart.Add(ctx, croissant.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := repo.DeleteProduct(ctx, croissant.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	result, err := svc.ProcessCheckout(cashierCtx(), sess)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !result.Performed || result.Total != 47000 {
		t.Fatalf("expected recorded sale at cart prices, got %+v", result)
	}
	if result.Transaction.ItemsSummary != "1x Americano, 1x Croissant" {
		t.Fatalf("unexpected summary: %q", result.Transaction.ItemsSummary)
	}

	a, _ := repo.GetProduct(ctx, americano.ID)
	if a.Stock != 9 {
		t.Fatalf("expected americano stock 9, got %d", a.Stock)
	}
}

type failingSaleRepo struct {
	*memory.Store
}

func (f failingSaleRepo) ApplySale(_ context.Context, _ domain.Transaction, _ []domain.StockDecrement) (*domain.Transaction, error) {
	return nil, errors.New("store offline")
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	repo := failingSaleRepo{Store: memory.New()}
	svc, sessions := newTestService(repo)
	ctx := context.Background()

	product, _ := repo.InsertProduct(ctx, domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 10})

	sess := sessions.Create("kasir", domain.RoleCashier)
	if _, err := sess.Cart.Add(ctx, product.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := svc.ProcessCheckout(cashierCtx(), sess); err == nil {
		t.Fatalf("expected checkout error")
	}
	if len(sess.Cart.Lines()) != 1 {
		t.Fatalf("expected cart kept after failure")
	}
}

func TestRestockRaisesStockAndBooksExpense(t *testing.T) {
	repo := memory.New()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	product, _ := repo.InsertProduct(ctx, domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 10})

	result, err := svc.Restock(adminCtx(), product.ID, domain.RestockRequest{Quantity: 50, Cost: 500000})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if result.Product == nil || result.Transaction == nil {
		t.Fatalf("expected populated result, got %+v", result)
	}
	if !result.Performed || result.Product.Stock != 60 {
		t.Fatalf("expected stock 60, got %+v", result)
	}
	if result.Transaction.Type != domain.TxTypeOut || result.Transaction.TotalAmount != 500000 {
		t.Fatalf("unexpected transaction: %+v", result.Transaction)
	}
	if result.Transaction.ItemsSummary != "Restock: 50x Americano" {
		t.Fatalf("unexpected summary: %q", result.Transaction.ItemsSummary)
	}
	if result.Transaction.Note != "Restock Modal" {
		t.Fatalf("unexpected note: %q", result.Transaction.Note)
	}
}

func TestRestockZeroQuantityIsNoOp(t *testing.T) {
	repo := memory.New()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	product, _ := repo.InsertProduct(ctx, domain.Product{Name: "Americano", Price: 25000, Category: "Kopi", Stock: 10})

	result, err := svc.Restock(adminCtx(), product.ID, domain.RestockRequest{Quantity: 0, Cost: 100000})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if result.Performed {
		t.Fatalf("expected no-op for zero quantity")
	}

	got, _ := repo.GetProduct(ctx, product.ID)
	if got.Stock != 10 {
		t.Fatalf("expected stock unchanged, got %d", got.Stock)
	}
	txs, _ := svc.Transactions(ctx, "")
	if len(txs) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txs))
	}
}

func TestRecordEntryValidatesAmounts(t *testing.T) {
	svc, _ := newTestService(memory.New())

	if _, err := svc.RecordEntry(adminCtx(), domain.EntryRequest{Type: "CAPITAL", Amount: 0}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected rejection of zero capital, got %v", err)
	}
	if _, err := svc.RecordEntry(adminCtx(), domain.EntryRequest{Type: "WITHDRAW", Amount: -5}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected rejection of negative withdraw, got %v", err)
	}
	if _, err := svc.RecordEntry(adminCtx(), domain.EntryRequest{Type: "REFUND", Amount: 1000}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected rejection of unknown type, got %v", err)
	}

	created, err := svc.RecordEntry(adminCtx(), domain.EntryRequest{Type: "capital", Amount: 1000000, Note: "Initial capital"})
	if err != nil {
		t.Fatalf("record entry: %v", err)
	}
	if created.Type != domain.TxTypeCapital {
		t.Fatalf("expected type normalized to CAPITAL, got %q", created.Type)
	}
}

func TestTransactionsRejectsUnknownFilter(t *testing.T) {
	svc, _ := newTestService(memory.New())

	if _, err := svc.Transactions(context.Background(), "REFUND"); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestProfileAdminOnly(t *testing.T) {
	repo := memory.New()
	svc, _ := newTestService(repo)

	if _, err := svc.GetProfile(cashierCtx()); err == nil {
		t.Fatalf("expected cashier to be rejected")
	}

	saved, err := svc.SaveProfile(adminCtx(), domain.StoreProfile{ID: 9, StoreName: "Kopi Senja", Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if saved.ID != 1 {
		t.Fatalf("expected profile id forced to 1, got %d", saved.ID)
	}

	got, err := svc.GetProfile(adminCtx())
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.StoreName != "Kopi Senja" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}
