package decode

import (
	"bytes"
	"encoding/base64"
	"image"
	"log/slog"
	"regexp"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/scandoc/invoice-ocr/internal/common"
)

// reDataURI matches an optional data-URI prefix on an inbound payload.
var reDataURI = regexp.MustCompile(`^data:[a-zA-Z0-9.+/-]+;base64,`)

// NormalizeBase64 strips a data-URI prefix, removes whitespace and newlines,
// and corrects padding by appending '=' up to the next multiple of 4. A
// validly padded, unprefixed string passes through unchanged.
func NormalizeBase64(s string) string {
	s = reDataURI.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	if missing := len(s) % 4; missing != 0 {
		s += strings.Repeat("=", 4-missing)
	}
	return s
}

// DecodeBase64 normalizes and decodes an inbound payload to raw bytes.
// Malformed base64 is a client-input error, not fatal.
func DecodeBase64(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(NormalizeBase64(s))
	if err != nil {
		return nil, common.InputErrorf("invalid base64 payload: %v", err)
	}
	return raw, nil
}

// DecodeImage turns raw image bytes into a raster. Undecodable bytes are a
// client-input error.
func DecodeImage(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.DecodeErrorf("failed to decode image data: %v", err)
	}
	slog.Debug("decoded image", "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}
