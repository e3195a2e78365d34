package export

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/scandoc/invoice-ocr/internal/entity"
	"github.com/scandoc/invoice-ocr/internal/repository"
)

func testRepo(t *testing.T) repository.InvoiceRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&entity.Invoice{}, &entity.InvoiceItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewInvoiceRepository(db, nil)
}

func TestExportInvoicesXLSX(t *testing.T) {
	repo := testRepo(t)
	company := "ACME Corp"
	number := "INV-9"
	total := 42.5
	desc := "Widget"
	if _, err := repo.Save(context.Background(), &entity.Invoice{
		CompanyName:   &company,
		InvoiceNumber: &number,
		TotalAmount:   &total,
	}, []entity.InvoiceItem{{Description: &desc}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	data, err := NewService(repo, nil).ExportInvoicesXLSX(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][1] != "Company" {
		t.Fatalf("header row: %v", rows[0])
	}
	if rows[1][1] != "ACME Corp" || rows[1][3] != "INV-9" {
		t.Fatalf("data row: %v", rows[1])
	}
	// Items column carries the line-item count.
	if rows[1][8] != "1" {
		t.Fatalf("items count cell: %v", rows[1])
	}
}

func TestExportEmptyDatabase(t *testing.T) {
	data, err := NewService(testRepo(t), nil).ExportInvoicesXLSX(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Invoices")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("empty export should carry only the header, got %d rows", len(rows))
	}
}
