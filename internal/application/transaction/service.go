package transaction

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fintrack-api/internal/domain"
	"github.com/fintrack-api/internal/pkg/id"
)

// Store is the persistence surface the transaction flows need.
type Store interface {
	Put(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListByOwner(ctx context.Context, ownerID string, startDate, endDate *time.Time, category string) ([]domain.Transaction, error)
	Update(ctx context.Context, transactionID string, updates map[string]interface{}) error
	Delete(ctx context.Context, transactionID string) error
}

// ListFilter narrows and orders a listing.
type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Query     string // case-insensitive title substring
	SortBy    string // "" (date desc), "amount_asc", "amount_desc"
}

// Summary is the dashboard aggregation: totals, expense breakdown by
// category, and a per-month income/expense trend.
type Summary struct {
	TotalIncome  float64         `json:"total_income"`
	TotalExpense float64         `json:"total_expense"`
	Balance      float64         `json:"balance"`
	ByCategory   []CategoryTotal `json:"by_category"`
	Monthly      []MonthlyTotal  `json:"monthly"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

type MonthlyTotal struct {
	Month   string  `json:"month"` // YYYY-MM
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type Service interface {
	Create(ctx context.Context, ownerID string, req domain.CreateTransactionRequest) (*domain.Transaction, error)
	List(ctx context.Context, ownerID string, f ListFilter) ([]domain.Transaction, error)
	Get(ctx context.Context, ownerID, transactionID string) (*domain.Transaction, error)
	Update(ctx context.Context, ownerID, transactionID string, req domain.UpdateTransactionRequest) (*domain.Transaction, error)
	Delete(ctx context.Context, ownerID, transactionID string) error
	Summarize(ctx context.Context, ownerID string, f ListFilter) (*Summary, error)
}

type service struct {
	repo Store
}

func NewService(repo Store) Service {
	return &service{repo: repo}
}

// Create stamps the owner from the authenticated caller; a client-supplied
// owner field never reaches this layer.
func (s *service) Create(ctx context.Context, ownerID string, req domain.CreateTransactionRequest) (*domain.Transaction, error) {
	date := time.Now().UTC().Truncate(time.Second)
	if req.Date != nil {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		date = parsed
	}
	now := time.Now().UTC()
	tx := &domain.Transaction{
		TransactionID: id.New(),
		OwnerID:       ownerID,
		Title:         strings.TrimSpace(req.Title),
		Amount:        req.Amount,
		Type:          req.Type,
		Date:          date,
		Category:      strings.TrimSpace(req.Category),
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Put(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *service) List(ctx context.Context, ownerID string, f ListFilter) ([]domain.Transaction, error) {
	txs, err := s.repo.ListByOwner(ctx, ownerID, f.StartDate, f.EndDate, f.Category)
	if err != nil {
		return nil, err
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		filtered := txs[:0]
		for _, tx := range txs {
			if strings.Contains(strings.ToLower(tx.Title), q) {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	// The store already returns date desc; amount sorts reorder in memory.
	switch f.SortBy {
	case "amount_asc":
		sort.SliceStable(txs, func(i, j int) bool { return txs[i].Amount < txs[j].Amount })
	case "amount_desc":
		sort.SliceStable(txs, func(i, j int) bool { return txs[i].Amount > txs[j].Amount })
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func (s *service) Get(ctx context.Context, ownerID, transactionID string) (*domain.Transaction, error) {
	return s.getOwned(ctx, ownerID, transactionID)
}

func (s *service) Update(ctx context.Context, ownerID, transactionID string, req domain.UpdateTransactionRequest) (*domain.Transaction, error) {
	tx, err := s.getOwned(ctx, ownerID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		tx.Title = strings.TrimSpace(*req.Title)
		updates["title"] = tx.Title
	}
	if req.Amount != nil {
		tx.Amount = *req.Amount
		updates["amount"] = tx.Amount
	}
	if req.Type != nil {
		tx.Type = *req.Type
		updates["type"] = tx.Type
	}
	if req.Date != nil {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		tx.Date = parsed
		updates["date"] = tx.Date
	}
	if req.Category != nil {
		tx.Category = strings.TrimSpace(*req.Category)
		updates["category"] = tx.Category
	}
	if req.Notes != nil {
		tx.Notes = *req.Notes
		updates["notes"] = tx.Notes
	}
	if len(updates) == 0 {
		return tx, nil
	}
	if err := s.repo.Update(ctx, transactionID, updates); err != nil {
		return nil, err
	}
	tx.UpdatedAt = time.Now().UTC()
	return tx, nil
}

// Delete is permanent; there is no soft-delete.
func (s *service) Delete(ctx context.Context, ownerID, transactionID string) error {
	if _, err := s.getOwned(ctx, ownerID, transactionID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, transactionID)
}

// Summarize derives signs from Type: amounts are stored as positive
// magnitudes, so income adds and expense subtracts only here.
func (s *service) Summarize(ctx context.Context, ownerID string, f ListFilter) (*Summary, error) {
	txs, err := s.repo.ListByOwner(ctx, ownerID, f.StartDate, f.EndDate, f.Category)
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	byCategory := map[string]float64{}
	monthly := map[string]*MonthlyTotal{}
	for _, tx := range txs {
		month := tx.Date.UTC().Format("2006-01")
		mt, ok := monthly[month]
		if !ok {
			mt = &MonthlyTotal{Month: month}
			monthly[month] = mt
		}
		switch tx.Type {
		case domain.TypeIncome:
			sum.TotalIncome += tx.Amount
			mt.Income += tx.Amount
		case domain.TypeExpense:
			sum.TotalExpense += tx.Amount
			mt.Expense += tx.Amount
			byCategory[tx.Category] += tx.Amount
		}
	}
	sum.Balance = sum.TotalIncome - sum.TotalExpense

	sum.ByCategory = make([]CategoryTotal, 0, len(byCategory))
	for c, total := range byCategory {
		sum.ByCategory = append(sum.ByCategory, CategoryTotal{Category: c, Total: total})
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		if sum.ByCategory[i].Total != sum.ByCategory[j].Total {
			return sum.ByCategory[i].Total > sum.ByCategory[j].Total
		}
		return sum.ByCategory[i].Category < sum.ByCategory[j].Category
	})

	sum.Monthly = make([]MonthlyTotal, 0, len(monthly))
	for _, mt := range monthly {
		sum.Monthly = append(sum.Monthly, *mt)
	}
	sort.Slice(sum.Monthly, func(i, j int) bool { return sum.Monthly[i].Month < sum.Monthly[j].Month })

	return sum, nil
}

func (s *service) getOwned(ctx context.Context, ownerID, transactionID string) (*domain.Transaction, error) {
	tx, err := s.repo.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.OwnerID != ownerID {
		return nil, fmt.Errorf("transaction %s does not belong to caller: %w", transactionID, domain.ErrForbidden)
	}
	return tx, nil
}

// parseDate accepts RFC 3339 or a bare YYYY-MM-DD day. Dates are kept at
// whole-second precision so their stored form sorts lexicographically in
// chronological order.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: %w", s, domain.ErrBadRequest)
}
