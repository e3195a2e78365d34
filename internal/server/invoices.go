package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scandoc/invoice-ocr/internal/common"
)

func (s *Server) handleListInvoices(c *gin.Context) {
	invoices, err := s.invoices.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve invoices: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	inv, err := s.invoices.GetByID(c.Request.Context(), uint(id))
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve invoice: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleExportInvoices(c *gin.Context) {
	data, err := s.export.ExportInvoicesXLSX(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export invoices: " + err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
