package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/scandoc/invoice-ocr/internal/detect"
	"github.com/scandoc/invoice-ocr/internal/entity"
	"github.com/scandoc/invoice-ocr/internal/export"
	"github.com/scandoc/invoice-ocr/internal/pipeline"
	"github.com/scandoc/invoice-ocr/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedDetector struct{ dets detect.Detections }

func (f fixedDetector) Detect(ctx context.Context, img image.Image) (detect.Detections, error) {
	return f.dets, nil
}

type fixedRecognizer struct{ text string }

func (f fixedRecognizer) Recognize(ctx context.Context, region image.Image) (string, error) {
	return f.text, nil
}

type fixedCompleter struct{ reply string }

func (f fixedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.reply, nil
}

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

func testRouter(t *testing.T, repo repository.InvoiceRepository, llmReply string) *gin.Engine {
	t.Helper()
	processor := pipeline.NewProcessor(nil, pipeline.Config{Threshold: 0.5}, nil,
		fixedDetector{}, fixedRecognizer{}, fixedCompleter{reply: llmReply}, nil, repo)
	srv := New(nil, processor, repo, export.NewService(repo, nil))
	return srv.Router([]string{"*"})
}

func whitePNGBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestScanRejectsNonJSON(t *testing.T) {
	router := testRouter(t, testRepo(t), "{}")
	req := httptest.NewRequest(http.MethodPost, "/ocr", strings.NewReader("image=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d, want 415", w.Code)
	}
	if !strings.Contains(w.Body.String(), "application/json") {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestScanRejectsMissingPayload(t *testing.T) {
	router := testRouter(t, testRepo(t), "{}")
	w := postJSON(router, "/ocr", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No image data provided") {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestScanRejectsUnknownFileType(t *testing.T) {
	router := testRouter(t, testRepo(t), "{}")
	w := postJSON(router, "/ocr", `{"file":"aGk=","file_type":"docx"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unsupported file_type") {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestScanRejectsBadBase64(t *testing.T) {
	router := testRouter(t, testRepo(t), "{}")
	w := postJSON(router, "/ocr", `{"image":"!!!"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestScanPersistsAndReturnsFields(t *testing.T) {
	repo := testRepo(t)
	router := testRouter(t, repo, `{"Company Name":"ACME Corp","Total":"42.00"}`)

	w := postJSON(router, "/ocr", `{"image":"`+whitePNGBase64(t)+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["Company Name"] != "ACME Corp" {
		t.Fatalf("company name: %v", resp["Company Name"])
	}
	idVal, ok := resp["invoice_id"].(float64)
	if !ok || idVal == 0 {
		t.Fatalf("invoice_id: %v", resp["invoice_id"])
	}

	inv, err := repo.GetByID(context.Background(), uint(idVal))
	if err != nil {
		t.Fatalf("fetch persisted invoice: %v", err)
	}
	if inv.TotalAmount == nil || *inv.TotalAmount != 42 {
		t.Fatalf("persisted total: %v", inv.TotalAmount)
	}
}

// When the model reply never parses, the raw candidate text comes back as-is.
func TestScanParseFailurePassthrough(t *testing.T) {
	reply := `Sorry, here is what I saw: { not json at all`
	router := testRouter(t, testRepo(t), reply)

	w := postJSON(router, "/ocr", `{"image":"`+whitePNGBase64(t)+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "invoice_id") {
		t.Fatalf("parse failure should not carry an id: %s", w.Body.String())
	}
}

func TestScanAcceptsPDFFileType(t *testing.T) {
	// No PDF renderer is wired, so a pdf file_type must fail cleanly rather
	// than be treated as an image.
	router := testRouter(t, testRepo(t), "{}")
	w := postJSON(router, "/ocr", `{"file":"aGk=","file_type":"pdf"}`)
	if w.Code == http.StatusOK {
		t.Fatalf("expected failure without a pdf renderer, got 200: %s", w.Body.String())
	}
}

func TestGetInvoice(t *testing.T) {
	repo := testRepo(t)
	company := "ACME Corp"
	id, err := repo.Save(context.Background(), &entity.Invoice{CompanyName: &company}, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := testRouter(t, repo, "{}")

	w := get(router, fmt.Sprintf("/invoices/%d", id))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var inv entity.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inv.CompanyName == nil || *inv.CompanyName != company {
		t.Fatalf("company: %v", inv.CompanyName)
	}
}

func TestGetInvoiceNotFound(t *testing.T) {
	router := testRouter(t, testRepo(t), "{}")
	w := get(router, "/invoices/424242")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestGetInvoiceBadID(t *testing.T) {
	router := testRouter(t, testRepo(t), "{}")
	w := get(router, "/invoices/abc")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestRevenuePerDayZeroFilled(t *testing.T) {
	router := testRouter(t, testRepo(t), "{}")
	w := get(router, "/stats/revenue-per-day")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var days []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &days); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("want 7 weekday buckets, got %d", len(days))
	}
	if days[0]["day"] != "Mon" || days[6]["day"] != "Sun" {
		t.Fatalf("unexpected ordering: %v", days)
	}
	for _, d := range days {
		if d["total"] != float64(0) {
			t.Fatalf("empty database should zero-fill all days: %v", d)
		}
	}
}

func TestStatsEndpointsShapes(t *testing.T) {
	repo := testRepo(t)
	company, customer, total := "ACME Corp", "alice", 99.5
	if _, err := repo.Save(context.Background(), &entity.Invoice{
		CompanyName:  &company,
		CustomerName: &customer,
		TotalAmount:  &total,
	}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := testRouter(t, repo, "{}")

	w := get(router, "/stats/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("summary status %d", w.Code)
	}
	var summary repository.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalInvoices != 1 || summary.TotalRevenue != 99.5 || summary.TotalClients != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	w = get(router, "/stats/top-clients")
	var clients []repository.ClientTotal
	if err := json.Unmarshal(w.Body.Bytes(), &clients); err != nil {
		t.Fatalf("decode top clients: %v", err)
	}
	if len(clients) != 1 || clients[0].Name != "alice" {
		t.Fatalf("top clients: %+v", clients)
	}

	w = get(router, "/stats/total-revenue")
	if !strings.Contains(w.Body.String(), "99.5") {
		t.Fatalf("total revenue body: %s", w.Body.String())
	}

	w = get(router, "/stats/recent-invoices")
	var recent []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &recent); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("recent: %+v", recent)
	}
	row := recent[0]
	for _, key := range []string{"id", "invoiceNumber", "clientName", "date", "amount", "status"} {
		if _, ok := row[key]; !ok {
			t.Fatalf("recent invoice row missing %q: %v", key, row)
		}
	}

	w = get(router, "/stats/revenue-per-company")
	var companies []repository.CompanyTotal
	if err := json.Unmarshal(w.Body.Bytes(), &companies); err != nil {
		t.Fatalf("decode revenue per company: %v", err)
	}
	if len(companies) != 1 || companies[0].Company != "ACME Corp" {
		t.Fatalf("revenue per company: %+v", companies)
	}
}

func TestExportInvoicesXLSX(t *testing.T) {
	repo := testRepo(t)
	company := "ACME Corp"
	if _, err := repo.Save(context.Background(), &entity.Invoice{CompanyName: &company}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := testRouter(t, repo, "{}")

	w := get(router, "/invoices/export")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "invoices.xlsx") {
		t.Fatalf("content disposition: %q", got)
	}
	// XLSX files are zip archives.
	if body := w.Body.Bytes(); len(body) < 4 || body[0] != 'P' || body[1] != 'K' {
		t.Fatal("export body is not a zip archive")
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	due := func(s string) *string { return &s }
	zero := 0.0
	amount := 10.0

	cases := []struct {
		name string
		inv  entity.Invoice
		want string
	}{
		{"zero amount is paid", entity.Invoice{TotalAmount: &zero}, "paid"},
		{"no due date pending", entity.Invoice{TotalAmount: &amount}, "pending"},
		{"iso past due", entity.Invoice{TotalAmount: &amount, DueDate: due("2026-01-01")}, "overdue"},
		{"iso future", entity.Invoice{TotalAmount: &amount, DueDate: due("2026-12-01")}, "pending"},
		{"us layout past due", entity.Invoice{TotalAmount: &amount, DueDate: due("01/15/2026")}, "overdue"},
		{"unparseable pending", entity.Invoice{TotalAmount: &amount, DueDate: due("sometime soon")}, "pending"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveStatus(tc.inv, now); got != tc.want {
				t.Fatalf("deriveStatus = %q, want %q", got, tc.want)
			}
		})
	}
}
