// Package analytics answers "what sells" and "how is income trending"
// straight from the transaction history. Sold quantities are recovered by
// parsing the human-readable items summary on each sale, so a renamed or
// deleted product still counts under the name it was sold as.
package analytics

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"coffeeshop/backend/internal/cache"
	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/store"
)

// SummaryItem is one parsed "{qty}x {name}" segment of an items summary.
type SummaryItem struct {
	Name     string
	Quantity int
}

// ParseItemsSummary splits a summary like "2x Americano, 1x Cafe Latte" back
// into per-item quantities. Segments that do not parse are skipped.
func ParseItemsSummary(summary string) []SummaryItem {
	if strings.TrimSpace(summary) == "" {
		return nil
	}

	segments := strings.Split(summary, ", ")
	items := make([]SummaryItem, 0, len(segments))
	for _, segment := range segments {
		parts := strings.SplitN(segment, "x ", 2)
		if len(parts) != 2 {
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || qty < 1 {
			continue
		}
		name := strings.TrimSpace(parts[1])
		if name == "" {
			continue
		}
		items = append(items, SummaryItem{Name: name, Quantity: qty})
	}
	return items
}

// TopSelling aggregates sold quantities by item name across all IN
// transactions and returns the top sellers, quantity descending with name
// ascending as the tiebreak.
func TopSelling(txs []domain.Transaction, limit int) []domain.TopSeller {
	if limit < 1 {
		limit = 5
	}

	byName := make(map[string]int)
	for _, tx := range txs {
		if tx.Type != domain.TxTypeIn {
			continue
		}
		for _, item := range ParseItemsSummary(tx.ItemsSummary) {
			byName[item.Name] += item.Quantity
		}
	}

	sellers := make([]domain.TopSeller, 0, len(byName))
	for name, qty := range byName {
		sellers = append(sellers, domain.TopSeller{Name: name, Quantity: qty})
	}
	sort.Slice(sellers, func(i, j int) bool {
		if sellers[i].Quantity == sellers[j].Quantity {
			return sellers[i].Name < sellers[j].Name
		}
		return sellers[i].Quantity > sellers[j].Quantity
	})

	if len(sellers) > limit {
		sellers = sellers[:limit]
	}
	return sellers
}

// Trend buckets sales into consecutive local calendar days ending today,
// oldest first. Income sums IN transaction amounts, quantity sums the parsed
// item counts. Seven-day buckets are labelled by weekday, thirty-day buckets
// by day and month.
func Trend(txs []domain.Transaction, rangeDays int, now time.Time, loc *time.Location) domain.TrendReport {
	if rangeDays != 7 && rangeDays != 30 {
		rangeDays = 7
	}
	if loc == nil {
		loc = time.Local
	}

	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := today.AddDate(0, 0, -(rangeDays - 1))

	// Buckets are indexed by calendar-day key, not hour arithmetic, so DST
	// transitions inside the window cannot shift a sale into the wrong day.
	buckets := make([]domain.TrendBucket, rangeDays)
	dayIndex := make(map[string]int, rangeDays)
	for i := range buckets {
		day := start.AddDate(0, 0, i)
		label := day.Format("Mon")
		if rangeDays == 30 {
			label = day.Format("02 Jan")
		}
		buckets[i] = domain.TrendBucket{Label: label}
		dayIndex[day.Format(time.DateOnly)] = i
	}

	report := domain.TrendReport{RangeDays: rangeDays, Buckets: buckets}
	for _, tx := range txs {
		if tx.Type != domain.TxTypeIn {
			continue
		}
		offset, ok := dayIndex[tx.Date.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		report.Buckets[offset].Income += tx.TotalAmount
		for _, item := range ParseItemsSummary(tx.ItemsSummary) {
			report.Buckets[offset].Quantity += item.Quantity
		}
		report.TotalIncome += tx.TotalAmount
	}

	return report
}

// Engine serves analytics over the live ledger, caching trend reports until
// the next transaction lands.
type Engine struct {
	repo     store.Ledger
	cache    cache.TrendCache
	cacheTTL time.Duration
	loc      *time.Location

	generation atomic.Uint64
}

func NewEngine(repo store.Ledger, trendCache cache.TrendCache, cacheTTL time.Duration, loc *time.Location) *Engine {
	if trendCache == nil {
		trendCache = cache.NoopTrendCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{repo: repo, cache: trendCache, cacheTTL: cacheTTL, loc: loc}
}

// Start follows the ledger's change feed and bumps the cache generation on
// every new transaction, orphaning cached trend reports.
func (e *Engine) Start(ctx context.Context) {
	changes, cancel := e.repo.WatchTransactions()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				e.generation.Add(1)
			}
		}
	}()
}

func (e *Engine) TopSellers(ctx context.Context, limit int) ([]domain.TopSeller, error) {
	txs, err := e.repo.ListTransactions(ctx, domain.TxTypeIn)
	if err != nil {
		return nil, err
	}
	return TopSelling(txs, limit), nil
}

func (e *Engine) TrendReport(ctx context.Context, rangeDays int) (*domain.TrendReport, error) {
	// The local date is part of the key: the window ends today, so a report
	// cached before midnight must not be served after it.
	key := fmt.Sprintf("trend:%d:%s:gen%d", rangeDays, time.Now().In(e.loc).Format(time.DateOnly), e.generation.Load())
	cached, hit, err := e.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[analytics] WARN: trend cache get: %v", err)
	}
	if hit {
		return cached, nil
	}

	txs, err := e.repo.ListTransactions(ctx, domain.TxTypeIn)
	if err != nil {
		return nil, err
	}

	report := Trend(txs, rangeDays, time.Now(), e.loc)
	if err := e.cache.Set(ctx, key, &report, e.cacheTTL); err != nil {
		log.Printf("[analytics] WARN: trend cache set: %v", err)
	}
	return &report, nil
}
