// Package server is the thin HTTP surface over the pipeline and the
// reporting queries.
package server

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/scandoc/invoice-ocr/internal/export"
	"github.com/scandoc/invoice-ocr/internal/pipeline"
	"github.com/scandoc/invoice-ocr/internal/repository"
)

// Server holds the handler dependencies.
type Server struct {
	logger    *slog.Logger
	processor *pipeline.Processor
	invoices  repository.InvoiceRepository
	export    *export.Service
}

func New(logger *slog.Logger, processor *pipeline.Processor, invoices repository.InvoiceRepository, exporter *export.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:    logger,
		processor: processor,
		invoices:  invoices,
		export:    exporter,
	}
}

// Router builds the gin engine with CORS and all routes registered.
func (s *Server) Router(allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(allowOrigins) == 1 && allowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.POST("/ocr", s.handleScan)

	r.GET("/invoices", s.handleListInvoices)
	r.GET("/invoices/export", s.handleExportInvoices)
	r.GET("/invoices/:id", s.handleGetInvoice)

	r.GET("/stats/revenue-per-day", s.handleRevenuePerDay)
	r.GET("/stats/summary", s.handleSummary)
	r.GET("/stats/top-clients", s.handleTopClients)
	r.GET("/stats/recent-invoices", s.handleRecentInvoices)
	r.GET("/stats/total-revenue", s.handleTotalRevenue)
	r.GET("/stats/revenue-per-company", s.handleRevenuePerCompany)

	return r
}
