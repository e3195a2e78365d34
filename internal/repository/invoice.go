package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/scandoc/invoice-ocr/internal/common"
	"github.com/scandoc/invoice-ocr/internal/entity"
)

// InvoiceSummary is the truncated shape returned by list queries.
type InvoiceSummary struct {
	ID            uint      `json:"id"`
	CompanyName   *string   `json:"company_name"`
	InvoiceNumber *string   `json:"invoice_number"`
	InvoiceDate   *string   `json:"invoice_date"`
	TotalAmount   *float64  `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClientTotal is one row of the top-clients aggregate.
type ClientTotal struct {
	Name       string  `json:"name"`
	TotalValue float64 `json:"totalValue"`
}

// CompanyTotal is one row of the revenue-per-company aggregate.
type CompanyTotal struct {
	Company      string  `json:"company"`
	TotalRevenue float64 `json:"total_revenue"`
}

// Summary aggregates the headline dashboard numbers.
type Summary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalClients  int64   `json:"total_clients"`
	TotalInvoices int64   `json:"total_invoices"`
}

// InvoiceRepository is the persistence capability the pipeline and the
// reporting layer depend on.
type InvoiceRepository interface {
	// Save commits the invoice and its items as one logical unit and
	// returns the generated identity. Any failure rolls back the whole
	// transaction; no partial invoice or orphaned items survive.
	Save(ctx context.Context, inv *entity.Invoice, items []entity.InvoiceItem) (uint, error)

	GetByID(ctx context.Context, id uint) (*entity.Invoice, error)
	List(ctx context.Context) ([]InvoiceSummary, error)
	ListFull(ctx context.Context) ([]entity.Invoice, error)

	RevenuePerDay(ctx context.Context, since time.Time) (map[string]float64, error)
	Summary(ctx context.Context) (Summary, error)
	TopClients(ctx context.Context, limit int) ([]ClientTotal, error)
	RecentInvoices(ctx context.Context, limit int) ([]entity.Invoice, error)
	TotalRevenue(ctx context.Context) (float64, error)
	RevenuePerCompany(ctx context.Context) ([]CompanyTotal, error)
}

type invoiceRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *gorm.DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Save(ctx context.Context, inv *entity.Invoice, items []entity.InvoiceItem) (uint, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		for i := range items {
			items[i].InvoiceID = inv.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert invoice items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to save invoice", "error", err)
		return 0, fmt.Errorf("%v: %w", err, common.ErrPersistence)
	}
	return inv.ID, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uint) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := r.db.WithContext(ctx).Preload("Items").First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context) ([]InvoiceSummary, error) {
	var out []InvoiceSummary
	err := r.db.WithContext(ctx).
		Model(&entity.Invoice{}).
		Select("id, company_name, invoice_number, invoice_date, total_amount, created_at").
		Order("created_at DESC").
		Scan(&out).Error
	return out, err
}

func (r *invoiceRepository) ListFull(ctx context.Context) ([]entity.Invoice, error) {
	var out []entity.Invoice
	err := r.db.WithContext(ctx).Preload("Items").Order("created_at ASC").Find(&out).Error
	return out, err
}

// RevenuePerDay sums total_amount per weekday since the given instant. The
// grouping happens in Go to stay portable across the postgres and sqlite
// dialects used in production and tests.
func (r *invoiceRepository) RevenuePerDay(ctx context.Context, since time.Time) (map[string]float64, error) {
	var rows []entity.Invoice
	err := r.db.WithContext(ctx).
		Select("created_at, total_amount").
		Where("created_at >= ?", since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64)
	for _, inv := range rows {
		if inv.TotalAmount == nil {
			continue
		}
		totals[inv.CreatedAt.UTC().Format("Mon")] += *inv.TotalAmount
	}
	return totals, nil
}

func (r *invoiceRepository) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	db := r.db.WithContext(ctx).Model(&entity.Invoice{})
	if err := db.Count(&s.TotalInvoices).Error; err != nil {
		return s, err
	}
	if err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&s.TotalRevenue).Error; err != nil {
		return s, err
	}
	if err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Where("customer_name IS NOT NULL").
		Select("COUNT(DISTINCT customer_name)").Scan(&s.TotalClients).Error; err != nil {
		return s, err
	}
	return s, nil
}

func (r *invoiceRepository) TopClients(ctx context.Context, limit int) ([]ClientTotal, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []ClientTotal
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Select("customer_name AS name, COALESCE(SUM(total_amount), 0) AS total_value").
		Where("customer_name IS NOT NULL").
		Group("customer_name").
		Order("total_value DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *invoiceRepository) RecentInvoices(ctx context.Context, limit int) ([]entity.Invoice, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []entity.Invoice
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *invoiceRepository) TotalRevenue(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&total).Error
	return total, err
}

func (r *invoiceRepository) RevenuePerCompany(ctx context.Context) ([]CompanyTotal, error) {
	var out []CompanyTotal
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Select("company_name AS company, COALESCE(SUM(total_amount), 0) AS total_revenue").
		Where("company_name IS NOT NULL").
		Group("company_name").
		Scan(&out).Error
	return out, err
}
