package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/scandoc/invoice-ocr/internal/repository"
)

// Service produces XLSX bytes for invoice exports.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger}
}

// ExportInvoicesXLSX returns a workbook with one row per persisted invoice.
func (s *Service) ExportInvoicesXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.invoices.ListFull(ctx)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"ID",
		"Company",
		"Customer",
		"Invoice Number",
		"Invoice Date",
		"Due Date",
		"Total",
		"Taxes",
		"Items",
		"Created At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, inv := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		str := func(p *string) string {
			if p == nil {
				return ""
			}
			return *p
		}

		write(1, inv.ID)
		write(2, str(inv.CompanyName))
		write(3, str(inv.CustomerName))
		write(4, str(inv.InvoiceNumber))
		write(5, str(inv.InvoiceDate))
		write(6, str(inv.DueDate))
		if inv.TotalAmount != nil {
			write(7, *inv.TotalAmount)
		}
		if inv.Taxes != nil {
			write(8, *inv.Taxes)
		}
		write(9, len(inv.Items))
		write(10, inv.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.invoices.ok",
		"rows", len(recs),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
