package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/store"
)

type Store struct {
	db *sql.DB

	productFeed store.ChangeFeed
	txFeed      store.ChangeFeed
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price BIGINT NOT NULL CHECK (price >= 0),
			category TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			stock INT NOT NULL CHECK (stock >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			date TIMESTAMPTZ NOT NULL DEFAULT now(),
			total_amount BIGINT NOT NULL CHECK (total_amount >= 0),
			type TEXT NOT NULL CHECK (type IN ('IN','OUT','CAPITAL','WITHDRAW')),
			items_summary TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date DESC)`,
		`CREATE TABLE IF NOT EXISTS store_profile (
			id INT PRIMARY KEY CHECK (id = 1),
			store_name TEXT NOT NULL,
			store_address TEXT NOT NULL DEFAULT '',
			printer_mac_address TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			cashier_password TEXT NOT NULL DEFAULT '',
			logo_path TEXT NOT NULL DEFAULT '',
			dark_mode BOOLEAN NOT NULL DEFAULT false
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, category, image_url, stock
		FROM products
		WHERE $1 = '' OR category = $1
		ORDER BY category, name, id
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.ImageURL, &p.Stock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, category, image_url, stock
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.ImageURL, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) InsertProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, price, category, image_url, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
		RETURNING id
	`, product.Name, product.Price, product.Category, product.ImageURL, product.Stock).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := product
	s.productFeed.Broadcast()
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, category = $4, image_url = $5, stock = $6, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.Category, product.ImageURL, product.Stock)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	s.productFeed.Broadcast()
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	s.productFeed.Broadcast()
	return nil
}

func (s *Store) WatchProducts() (<-chan struct{}, func()) {
	return s.productFeed.Subscribe()
}

func (s *Store) ListTransactions(ctx context.Context, txType string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, total_amount, type, items_summary, note
		FROM transactions
		WHERE $1 = '' OR type = $1
		ORDER BY date DESC, id DESC
	`, txType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, 128)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.Date, &tx.TotalAmount, &tx.Type, &tx.ItemsSummary, &tx.Note); err != nil {
			return nil, err
		}
		tx.Date = tx.Date.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txs, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO transactions (date, total_amount, type, items_summary, note)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, tx.Date, tx.TotalAmount, tx.Type, tx.ItemsSummary, tx.Note).Scan(&tx.ID)
	if err != nil {
		return nil, err
	}

	created := tx
	s.txFeed.Broadcast()
	return &created, nil
}

func (s *Store) WatchTransactions() (<-chan struct{}, func()) {
	return s.txFeed.Subscribe()
}

func (s *Store) GetProfile(ctx context.Context) (*domain.StoreProfile, error) {
	var p domain.StoreProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_name, store_address, printer_mac_address, username,
			password, cashier_password, logo_path, dark_mode
		FROM store_profile
		WHERE id = 1
	`).Scan(&p.ID, &p.StoreName, &p.StoreAddress, &p.PrinterMacAddress, &p.Username,
		&p.Password, &p.CashierPassword, &p.LogoPath, &p.DarkMode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) PutProfile(ctx context.Context, profile domain.StoreProfile) error {
	if strings.TrimSpace(profile.StoreName) == "" || strings.TrimSpace(profile.Username) == "" {
		return store.ErrInvalidRecord
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_profile (
			id, store_name, store_address, printer_mac_address, username,
			password, cashier_password, logo_path, dark_mode
		)
		VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id)
		DO UPDATE SET store_name = EXCLUDED.store_name,
			store_address = EXCLUDED.store_address,
			printer_mac_address = EXCLUDED.printer_mac_address,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			cashier_password = EXCLUDED.cashier_password,
			logo_path = EXCLUDED.logo_path,
			dark_mode = EXCLUDED.dark_mode
	`, profile.StoreName, profile.StoreAddress, profile.PrinterMacAddress, profile.Username,
		profile.Password, profile.CashierPassword, profile.LogoPath, profile.DarkMode)
	return err
}

// ApplySale writes the sale record and its stock decrements in a single
// database transaction. Decrements against deleted products are skipped,
// remaining stock never goes below zero.
func (s *Store) ApplySale(ctx context.Context, tx domain.Transaction, decrements []domain.StockDecrement) (*domain.Transaction, error) {
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
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	for _, dec := range decrements {
		_, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = GREATEST(stock - $1, 0), updated_at = now()
			WHERE id = $2
		`, dec.Quantity, dec.ProductID)
		if err != nil {
			return nil, err
		}
	}

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO transactions (date, total_amount, type, items_summary, note)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, tx.Date, tx.TotalAmount, tx.Type, tx.ItemsSummary, tx.Note).Scan(&tx.ID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := tx
	s.productFeed.Broadcast()
	s.txFeed.Broadcast()
	return &created, nil
}

func (s *Store) ApplyRestock(ctx context.Context, tx domain.Transaction, productID int64, qty int) (*domain.Transaction, *domain.Product, error) {
	if tx.Type != domain.TxTypeOut || qty < 1 {
		return nil, nil, store.ErrInvalidRecord
	}
	if err := validateTransaction(tx); err != nil {
		return nil, nil, err
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var product domain.Product
	err = pgTx.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = now()
		WHERE id = $2
		RETURNING id, name, price, category, image_url, stock
	`, qty, productID).Scan(&product.ID, &product.Name, &product.Price, &product.Category, &product.ImageURL, &product.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO transactions (date, total_amount, type, items_summary, note)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, tx.Date, tx.TotalAmount, tx.Type, tx.ItemsSummary, tx.Note).Scan(&tx.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, nil, err
	}

	created := tx
	updated := product
	s.productFeed.Broadcast()
	s.txFeed.Broadcast()
	return &created, &updated, nil
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
