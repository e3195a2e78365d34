package detect

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scandoc/invoice-ocr/internal/common"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestClientDetect(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"predictions":[{
			"num_detections": 2.0,
			"detection_boxes": [[0.1,0.2,0.3,0.4],[0.5,0.6,0.7,0.8],[0,0,0,0]],
			"detection_scores": [0.9,0.4,0.0],
			"detection_classes": [1.0,2.0,0.0]
		}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "invoice-regions"}, nil)
	dets, err := c.Detect(context.Background(), testImage())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	if gotPath != "/v1/models/invoice-regions:predict" {
		t.Fatalf("path: %q", gotPath)
	}
	instances, ok := gotBody["instances"].([]any)
	if !ok || len(instances) != 1 {
		t.Fatalf("request must batch exactly one instance: %v", gotBody)
	}

	// num_detections bounds the arrays; the zero-score padding row is cut.
	if dets.Len() != 2 {
		t.Fatalf("detections: %d", dets.Len())
	}
	if dets.Boxes[0] != [4]float64{0.1, 0.2, 0.3, 0.4} {
		t.Fatalf("box 0: %v", dets.Boxes[0])
	}
	if dets.Classes[1] != 2 {
		t.Fatalf("class 1: %d", dets.Classes[1])
	}
	if dets.Scores[0] != 0.9 {
		t.Fatalf("score 0: %v", dets.Scores[0])
	}
}

func TestClientDetectMissingKeys(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no predictions", `{"predictions":[]}`},
		{"no num_detections", `{"predictions":[{"detection_boxes":[],"detection_scores":[],"detection_classes":[]}]}`},
		{"short arrays", `{"predictions":[{"num_detections":2.0,"detection_boxes":[[0,0,1,1],[0,0,1,1]],"detection_scores":[0.5],"detection_classes":[1.0,1.0]}]}`},
		{"not json", `<html>bad gateway</html>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL}, nil)
			_, err := c.Detect(context.Background(), testImage())
			if !errors.Is(err, common.ErrModelCall) {
				t.Fatalf("want ErrModelCall, got %v", err)
			}
		})
	}
}

func TestClientDetectBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.Detect(context.Background(), testImage())
	if !errors.Is(err, common.ErrModelCall) {
		t.Fatalf("want ErrModelCall, got %v", err)
	}
}

func TestClientDetectServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.Detect(context.Background(), testImage())
	if !errors.Is(err, common.ErrModelCall) {
		t.Fatalf("want ErrModelCall, got %v", err)
	}
}
