package store

import (
	"context"
	"errors"
	"sync"

	"coffeeshop/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Catalog persists products. WatchProducts returns a coalescing notification
// channel that receives after every committed catalog mutation; the returned
// cancel func must be called when the subscriber is done.
type Catalog interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	InsertProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	WatchProducts() (<-chan struct{}, func())
}

// Ledger persists transactions. The log is append-only; ListTransactions
// returns entries ordered by date descending, optionally filtered by type.
type Ledger interface {
	ListTransactions(ctx context.Context, txType string) ([]domain.Transaction, error)
	InsertTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	WatchTransactions() (<-chan struct{}, func())
}

// Profile persists the singleton store settings row. GetProfile returns
// ErrNotFound while no row has been saved yet.
type Profile interface {
	GetProfile(ctx context.Context) (*domain.StoreProfile, error)
	PutProfile(ctx context.Context, profile domain.StoreProfile) error
}

// Repository is the full collaborator surface. ApplySale and ApplyRestock are
// the transactional boundaries of checkout and restock: the transaction
// insert and every stock write commit together or not at all, so readers of
// the aggregate totals observe exactly one of "fully applied" or "fully
// rejected".
type Repository interface {
	Catalog
	Ledger
	Profile

	// ApplySale records an IN transaction and decrements persisted stock per
	// line, clamped at zero. Decrements for products that no longer exist are
	// skipped; the transaction is still recorded.
	ApplySale(ctx context.Context, tx domain.Transaction, decrements []domain.StockDecrement) (*domain.Transaction, error)

	// ApplyRestock increments the product's stock and records the matching
	// OUT transaction in the same unit.
	ApplyRestock(ctx context.Context, tx domain.Transaction, productID int64, qty int) (*domain.Transaction, *domain.Product, error)
}

// ChangeFeed fans out change notifications to subscribers. Broadcast never
// blocks: a subscriber that has not drained its channel keeps a single
// pending signal, which is enough for recompute-from-snapshot consumers.
type ChangeFeed struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func (f *ChangeFeed) Subscribe() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs == nil {
		f.subs = make(map[int]chan struct{})
	}
	id := f.next
	f.next++
	ch := make(chan struct{}, 1)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
	return ch, cancel
}

func (f *ChangeFeed) Broadcast() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
