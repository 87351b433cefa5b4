// Package ledger derives the store's financial totals from the append-only
// transaction history. Totals are never stored, they are recomputed from the
// full history whenever it changes.
package ledger

import (
	"context"
	"log"
	"sync"

	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/store"
)

// ComputeTotals folds the history into the four headline figures. Income
// counts sales and capital injections, expense counts restocks and owner
// withdrawals. Balance can go negative.
func ComputeTotals(txs []domain.Transaction) domain.Totals {
	var totals domain.Totals
	for _, tx := range txs {
		switch tx.Type {
		case domain.TxTypeIn:
			totals.TotalIncome += tx.TotalAmount
			totals.TotalSales += tx.TotalAmount
		case domain.TxTypeCapital:
			totals.TotalIncome += tx.TotalAmount
		case domain.TxTypeOut, domain.TxTypeWithdraw:
			totals.TotalExpense += tx.TotalAmount
		}
	}
	totals.CurrentBalance = totals.TotalIncome - totals.TotalExpense
	return totals
}

// Engine keeps the current totals warm by recomputing on every ledger change.
type Engine struct {
	repo store.Ledger

	mu     sync.RWMutex
	totals domain.Totals
	feed   store.ChangeFeed
}

func NewEngine(repo store.Ledger) *Engine {
	return &Engine{repo: repo}
}

// Start primes the totals and then follows the ledger's change feed until the
// context is cancelled.
func (e *Engine) Start(ctx context.Context) {
	changes, cancel := e.repo.WatchTransactions()
	e.refresh(ctx)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				e.refresh(ctx)
			}
		}
	}()
}

func (e *Engine) refresh(ctx context.Context) {
	txs, err := e.repo.ListTransactions(ctx, "")
	if err != nil {
		log.Printf("[ledger] WARN: refresh totals failed: %v", err)
		return
	}

	totals := ComputeTotals(txs)

	e.mu.Lock()
	e.totals = totals
	e.mu.Unlock()
	e.feed.Broadcast()
}

func (e *Engine) Totals() domain.Totals {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totals
}

func (e *Engine) Watch() (<-chan struct{}, func()) {
	return e.feed.Subscribe()
}
