package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/store"
)

type Store struct {
	mu            sync.RWMutex
	products      map[int64]domain.Product
	transactions  []domain.Transaction
	profile       *domain.StoreProfile
	nextProductID int64
	nextTxID      int64

	productFeed store.ChangeFeed
	txFeed      store.ChangeFeed
}

func New() *Store {
	return &Store{
		products:      make(map[int64]domain.Product),
		transactions:  make([]domain.Transaction, 0, 128),
		nextProductID: 1,
		nextTxID:      1,
	}
}

// NewSeeded returns a store pre-filled with a demo coffeeshop catalog for
// dev mode and tests.
func NewSeeded() *Store {
	s := New()
	seed := []domain.Product{
		{Name: "Americano", Price: 25000, Category: "Kopi", ImageURL: "", Stock: 50},
		{Name: "Cafe Latte", Price: 28000, Category: "Kopi", ImageURL: "", Stock: 50},
		{Name: "Cappuccino", Price: 30000, Category: "Kopi", ImageURL: "", Stock: 50},
		{Name: "Kopi Susu Gula Aren", Price: 24000, Category: "Kopi", ImageURL: "", Stock: 60},
		{Name: "Es Teh Manis", Price: 12000, Category: "Teh", ImageURL: "", Stock: 80},
		{Name: "Teh Tarik", Price: 18000, Category: "Teh", ImageURL: "", Stock: 40},
		{Name: "Matcha Latte", Price: 32000, Category: "Non-Kopi", ImageURL: "", Stock: 30},
		{Name: "Coklat Panas", Price: 26000, Category: "Non-Kopi", ImageURL: "", Stock: 30},
		{Name: "Croissant", Price: 22000, Category: "Makanan", ImageURL: "", Stock: 25},
		{Name: "Roti Bakar", Price: 18000, Category: "Makanan", ImageURL: "", Stock: 25},
	}
	for _, p := range seed {
		p.ID = s.nextProductID
		s.nextProductID++
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context, category string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			if a.Name == b.Name {
				return int(a.ID - b.ID)
			}
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) InsertProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	product.ID = s.nextProductID
	s.nextProductID++
	s.products[product.ID] = product
	created := product
	s.mu.Unlock()

	s.productFeed.Broadcast()
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, exists := s.products[product.ID]; !exists {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product
	updated := product
	s.mu.Unlock()

	s.productFeed.Broadcast()
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	if _, exists := s.products[id]; !exists {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.products, id)
	s.mu.Unlock()

	s.productFeed.Broadcast()
	return nil
}

func (s *Store) WatchProducts() (<-chan struct{}, func()) {
	return s.productFeed.Subscribe()
}

func (s *Store) ListTransactions(_ context.Context, txType string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if txType != "" && tx.Type != txType {
			continue
		}
		result = append(result, tx)
	}

	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.Date.Equal(b.Date) {
			return int(b.ID - a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})

	return result, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	created := s.appendTransactionLocked(tx)
	s.mu.Unlock()

	s.txFeed.Broadcast()
	return &created, nil
}

func (s *Store) WatchTransactions() (<-chan struct{}, func()) {
	return s.txFeed.Subscribe()
}

func (s *Store) GetProfile(_ context.Context) (*domain.StoreProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profile == nil {
		return nil, store.ErrNotFound
	}
	copyProfile := *s.profile
	return &copyProfile, nil
}

func (s *Store) PutProfile(_ context.Context, profile domain.StoreProfile) error {
	if strings.TrimSpace(profile.StoreName) == "" || strings.TrimSpace(profile.Username) == "" {
		return store.ErrInvalidRecord
	}
	profile.ID = 1

	s.mu.Lock()
	s.profile = &profile
	s.mu.Unlock()
	return nil
}

// ApplySale validates everything before touching state, then mutates under a
// single lock so no partially applied sale is ever observable.
func (s *Store) ApplySale(_ context.Context, tx domain.Transaction, decrements []domain.StockDecrement) (*domain.Transaction, error) {
	if tx.Type != domain.TxTypeIn {
		return nil, store.ErrInvalidRecord
	}
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}
	for _, dec := range decrements {
		if dec.Quantity < 1 {
			return nil, store.ErrInvalidRecord
		}
	}

	s.mu.Lock()
	for _, dec := range decrements {
		product, exists := s.products[dec.ProductID]
		if !exists {
			// Product deleted since the cart was assembled: the financial
			// record is still kept, only the inventory link is gone.
			continue
		}
		product.Stock -= dec.Quantity
		if product.Stock < 0 {
			product.Stock = 0
		}
		s.products[dec.ProductID] = product
	}
	created := s.appendTransactionLocked(tx)
	s.mu.Unlock()

	s.productFeed.Broadcast()
	s.txFeed.Broadcast()
	return &created, nil
}

func (s *Store) ApplyRestock(_ context.Context, tx domain.Transaction, productID int64, qty int) (*domain.Transaction, *domain.Product, error) {
	if tx.Type != domain.TxTypeOut || qty < 1 {
		return nil, nil, store.ErrInvalidRecord
	}
	if err := validateTransaction(tx); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	product, exists := s.products[productID]
	if !exists {
		s.mu.Unlock()
		return nil, nil, store.ErrNotFound
	}
	product.Stock += qty
	s.products[productID] = product
	created := s.appendTransactionLocked(tx)
	updated := product
	s.mu.Unlock()

	s.productFeed.Broadcast()
	s.txFeed.Broadcast()
	return &created, &updated, nil
}

func (s *Store) appendTransactionLocked(tx domain.Transaction) domain.Transaction {
	tx.ID = s.nextTxID
	s.nextTxID++
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	s.transactions = append(s.transactions, tx)
	return tx
}

func validateProduct(product domain.Product) error {
	if strings.TrimSpace(product.Name) == "" || product.Price < 0 || product.Stock < 0 {
		return store.ErrInvalidRecord
	}
	return nil
}

func validateTransaction(tx domain.Transaction) error {
	if !domain.IsValidTxType(tx.Type) || tx.TotalAmount < 0 {
		return store.ErrInvalidRecord
	}
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
