package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scandoc/invoice-ocr/internal/common"
)

// Config for the HTTP detector client.
type Config struct {
	BaseURL string // inference server base, e.g. http://localhost:8501
	Model   string // served model name
	Timeout time.Duration
}

// Client calls a TF-Serving-style REST endpoint:
// POST {base}/v1/models/{model}:predict with a batch of one image.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8501"
	}
	if cfg.Model == "" {
		cfg.Model = "invoice-regions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type predictRequest struct {
	Instances []predictInstance `json:"instances"`
}

type predictInstance struct {
	ImageBytes struct {
		B64 string `json:"b64"`
	} `json:"image_bytes"`
}

type predictResponse struct {
	Predictions []struct {
		Boxes         [][4]float64 `json:"detection_boxes"`
		Scores        []float64    `json:"detection_scores"`
		Classes       []float64    `json:"detection_classes"`
		NumDetections *float64     `json:"num_detections"`
	} `json:"predictions"`
}

// Detect encodes the image as PNG, posts it to the inference server, and
// reads back the parallel detection arrays. Malformed output (missing keys,
// length mismatches) is a model-call error.
func (c *Client) Detect(ctx context.Context, img image.Image) (Detections, error) {
	start := time.Now()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Detections{}, fmt.Errorf("encode detector input: %w", err)
	}

	var reqBody predictRequest
	inst := predictInstance{}
	inst.ImageBytes.B64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	reqBody.Instances = []predictInstance{inst}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return Detections{}, fmt.Errorf("marshal detector request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/models/" + c.cfg.Model + ":predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return Detections{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("detector.http_error", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Detections{}, common.ModelCallErrorf("detector http error: %v", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("detector response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Detections{}, common.ModelCallErrorf("detector read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Detections{}, common.ModelCallErrorf("detector status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var pr predictResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return Detections{}, common.ModelCallErrorf("decode detector response: %v", err)
	}
	if len(pr.Predictions) == 0 {
		return Detections{}, common.ModelCallErrorf("detector response has no predictions")
	}
	p := pr.Predictions[0]
	if p.NumDetections == nil {
		return Detections{}, common.ModelCallErrorf("detector response missing num_detections")
	}

	n := int(*p.NumDetections)
	if n > len(p.Boxes) {
		n = len(p.Boxes)
	}
	if len(p.Scores) < n || len(p.Classes) < n {
		return Detections{}, common.ModelCallErrorf("detector arrays shorter than num_detections")
	}

	out := Detections{
		Boxes:   p.Boxes[:n],
		Scores:  p.Scores[:n],
		Classes: make([]int64, n),
	}
	for i := 0; i < n; i++ {
		out.Classes[i] = int64(p.Classes[i])
	}

	c.logger.Info("detector.ok", "model", c.cfg.Model, "detections", n,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
