package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scandoc/invoice-ocr/constants"
	"github.com/scandoc/invoice-ocr/internal/common"
	"github.com/scandoc/invoice-ocr/internal/pipeline"
)

// scanRequest accepts both inbound shapes: the legacy single-image payload
// and the extended file+file_type form that adds PDF support.
type scanRequest struct {
	Image    string `json:"image"`
	File     string `json:"file"`
	FileType string `json:"file_type"`
}

// handleScan runs one document through the pipeline.
//
// Responses:
//   - persisted: the structured fields plus an injected invoice_id
//   - persist failure: same shape with invoice_id null
//   - parse failure: the raw candidate text, not wrapped in JSON
//   - input errors: {"error": ...} with a 4xx status
func (s *Server) handleScan(c *gin.Context) {
	if !strings.HasPrefix(c.ContentType(), "application/json") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Request must be application/json"})
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	var preq pipeline.Request
	switch {
	case req.Image != "":
		preq = pipeline.Request{Payload: req.Image, Kind: constants.IMAGE}
	case req.File != "":
		kind := constants.MapFileType(req.FileType)
		if kind == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file_type: " + req.FileType})
			return
		}
		preq = pipeline.Request{Payload: req.File, Kind: kind}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image data provided"})
		return
	}

	result, err := s.processor.Process(c.Request.Context(), preq)
	if err != nil {
		status := common.HTTPStatus(err)
		msg := err.Error()
		if status >= http.StatusInternalServerError {
			msg = "Failed to process image: " + msg
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	switch result.State {
	case constants.StateParseFailed:
		// Best-effort passthrough of the near-miss model output.
		c.String(http.StatusOK, result.RawJSON)
	default:
		response := make(map[string]any, len(result.Fields)+1)
		for k, v := range result.Fields {
			response[k] = v
		}
		if result.InvoiceID != nil {
			response["invoice_id"] = *result.InvoiceID
		} else {
			response["invoice_id"] = nil
		}
		c.JSON(http.StatusOK, response)
	}
}
