package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"coffeeshop/backend/internal/analytics"
	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/ledger"
	"coffeeshop/backend/internal/session"
	"coffeeshop/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	ledger    *ledger.Engine
	analytics *analytics.Engine
	sessions  *session.Manager
}

func New(repo store.Repository, ledgerEngine *ledger.Engine, analyticsEngine *analytics.Engine, sessions *session.Manager) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerEngine,
		analytics: analyticsEngine,
		sessions:  sessions,
	}
}

func (s *Service) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, strings.TrimSpace(category))
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Price < 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidRecord
	}

	product := domain.Product{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		ImageURL: strings.TrimSpace(req.ImageURL),
		Stock:    req.Stock,
	}

	created, err := s.repo.InsertProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidRecord
		}
		updated.Name = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Product{}, store.ErrInvalidRecord
		}
		updated.Price = *req.Price
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.ImageURL != nil {
		updated.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrInvalidRecord
		}
		updated.Stock = *req.Stock
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}

// Restock raises the product's stock and books the purchase cost as an OUT
// transaction. A quantity below one leaves both the ledger and the stock
// untouched.
func (s *Service) Restock(ctx context.Context, productID int64, req domain.RestockRequest) (domain.RestockResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.RestockResult{}, err
	}
	if req.Quantity < 1 {
		return domain.RestockResult{Performed: false}, nil
	}
	if req.Cost < 0 {
		return domain.RestockResult{}, store.ErrInvalidRecord
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.RestockResult{}, err
	}

	tx := domain.Transaction{
		Date:         time.Now().UTC(),
		TotalAmount:  req.Cost,
		Type:         domain.TxTypeOut,
		ItemsSummary: fmt.Sprintf("Restock: %dx %s", req.Quantity, product.Name),
		Note:         "Restock Modal",
	}

	created, updated, err := s.repo.ApplyRestock(ctx, tx, productID, req.Quantity)
	if err != nil {
		return domain.RestockResult{}, err
	}

	return domain.RestockResult{Performed: true, Product: updated, Transaction: created}, nil
}

// ProcessCheckout turns the session's cart into a completed sale: one IN
// transaction plus a stock decrement per cart line, then an emptied cart.
// Cart lines whose product has since been deleted still appear in the
// transaction record, only their decrement is skipped. An empty cart is a
// no-op, not an error.
func (s *Service) ProcessCheckout(ctx context.Context, sess *session.Session) (domain.CheckoutResult, error) {
	lines := sess.Cart.Lines()
	if len(lines) == 0 {
		return domain.CheckoutResult{Performed: false}, nil
	}

	var total int64
	itemCount := 0
	segments := make([]string, 0, len(lines))
	decrements := make([]domain.StockDecrement, 0, len(lines))
	for _, line := range lines {
		total += line.Product.Price * int64(line.Quantity)
		itemCount += line.Quantity
		segments = append(segments, fmt.Sprintf("%dx %s", line.Quantity, line.Product.Name))
		decrements = append(decrements, domain.StockDecrement{ProductID: line.Product.ID, Quantity: line.Quantity})
	}

	tx := domain.Transaction{
		Date:         time.Now().UTC(),
		TotalAmount:  total,
		Type:         domain.TxTypeIn,
		ItemsSummary: strings.Join(segments, ", "),
		Note:         "Sales",
	}

	created, err := s.repo.ApplySale(ctx, tx, decrements)
	if err != nil {
		log.Printf("[service] WARN: checkout failed, cart kept: %v", err)
		return domain.CheckoutResult{}, err
	}

	sess.Cart.Clear()
	return domain.CheckoutResult{
		Performed:   true,
		Transaction: created,
		Total:       total,
		ItemCount:   itemCount,
	}, nil
}

// RecordEntry books a manual ledger entry. Capital injections and withdrawals
// must carry a positive amount.
func (s *Service) RecordEntry(ctx context.Context, req domain.EntryRequest) (domain.Transaction, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Transaction{}, err
	}

	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if !domain.IsValidTxType(req.Type) {
		return domain.Transaction{}, store.ErrInvalidRecord
	}
	if req.Amount < 0 {
		return domain.Transaction{}, store.ErrInvalidRecord
	}
	if (req.Type == domain.TxTypeCapital || req.Type == domain.TxTypeWithdraw) && req.Amount < 1 {
		return domain.Transaction{}, store.ErrInvalidRecord
	}

	tx := domain.Transaction{
		Date:         time.Now().UTC(),
		TotalAmount:  req.Amount,
		Type:         req.Type,
		ItemsSummary: strings.TrimSpace(req.ItemsSummary),
		Note:         strings.TrimSpace(req.Note),
	}

	created, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *created, nil
}

func (s *Service) Transactions(ctx context.Context, txType string) ([]domain.Transaction, error) {
	txType = strings.ToUpper(strings.TrimSpace(txType))
	if txType != "" && !domain.IsValidTxType(txType) {
		return nil, store.ErrInvalidRecord
	}
	return s.repo.ListTransactions(ctx, txType)
}

func (s *Service) Totals() domain.Totals {
	return s.ledger.Totals()
}

func (s *Service) TopSellers(ctx context.Context) ([]domain.TopSeller, error) {
	return s.analytics.TopSellers(ctx, 5)
}

func (s *Service) TrendReport(ctx context.Context, sess *session.Session) (*domain.TrendReport, error) {
	return s.analytics.TrendReport(ctx, sess.TrendRange())
}

func (s *Service) SetTrendRange(sess *session.Session, days int) error {
	return sess.SetTrendRange(days)
}

func (s *Service) GetProfile(ctx context.Context) (domain.StoreProfile, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StoreProfile{}, err
	}

	profile, err := s.repo.GetProfile(ctx)
	if err != nil {
		return domain.StoreProfile{}, err
	}
	return *profile, nil
}

func (s *Service) SaveProfile(ctx context.Context, profile domain.StoreProfile) (domain.StoreProfile, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StoreProfile{}, err
	}

	profile.ID = 1
	profile.StoreName = strings.TrimSpace(profile.StoreName)
	profile.Username = strings.TrimSpace(profile.Username)
	if profile.StoreName == "" || profile.Username == "" {
		return domain.StoreProfile{}, store.ErrInvalidRecord
	}

	if err := s.repo.PutProfile(ctx, profile); err != nil {
		return domain.StoreProfile{}, err
	}
	return profile, nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}
	return nil
}
