package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scandoc/invoice-ocr/internal/entity"
)

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// handleRevenuePerDay sums revenue for the current week, keyed by weekday
// name, zero-filled for days without invoices.
func (s *Server) handleRevenuePerDay(c *gin.Context) {
	now := time.Now().UTC()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	startOfWeek := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceMonday)

	totals, err := s.invoices.RevenuePerDay(c.Request.Context(), startOfWeek)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch revenue per day: " + err.Error()})
		return
	}

	response := make([]gin.H, 0, len(weekdays))
	for _, day := range weekdays {
		response = append(response, gin.H{"day": day, "total": totals[day]})
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleSummary(c *gin.Context) {
	summary, err := s.invoices.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoice summary: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleTopClients(c *gin.Context) {
	clients, err := s.invoices.TopClients(c.Request.Context(), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top clients: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (s *Server) handleRecentInvoices(c *gin.Context) {
	recent, err := s.invoices.RecentInvoices(c.Request.Context(), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent invoices: " + err.Error()})
		return
	}

	response := make([]gin.H, 0, len(recent))
	for _, inv := range recent {
		response = append(response, gin.H{
			"id":            inv.ID,
			"invoiceNumber": inv.InvoiceNumber,
			"clientName":    inv.CustomerName,
			"date":          inv.CreatedAt.UTC().Format(time.RFC3339),
			"amount":        inv.TotalAmount,
			"status":        deriveStatus(inv, time.Now().UTC()),
		})
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleTotalRevenue(c *gin.Context) {
	total, err := s.invoices.TotalRevenue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch total revenue: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_revenue": total})
}

func (s *Server) handleRevenuePerCompany(c *gin.Context) {
	companies, err := s.invoices.RevenuePerCompany(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch revenue per company: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, companies)
}

// dueDateLayouts are tried in order when deriving a status from the opaque
// due-date string. Source text comes from OCR/LLM output, so parsing is
// best-effort and failure falls back to "pending".
var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"January 2, 2006",
	"2 January 2006",
}

func deriveStatus(inv entity.Invoice, now time.Time) string {
	if inv.TotalAmount != nil && *inv.TotalAmount <= 0 {
		return "paid"
	}
	if inv.DueDate == nil || *inv.DueDate == "" {
		return "pending"
	}
	for _, layout := range dueDateLayouts {
		due, err := time.Parse(layout, *inv.DueDate)
		if err != nil {
			continue
		}
		if due.Before(now) {
			return "overdue"
		}
		return "pending"
	}
	return "pending"
}
