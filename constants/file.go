package constants

import "strings"

// Declared payload kinds accepted by the ingest endpoint.
const (
	IMAGE = "image"
	PDF   = "pdf"
)

// MapFileType normalizes a client-declared file_type to a canonical kind,
// returning "" for anything unsupported.
func MapFileType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case IMAGE, "img", "jpg", "jpeg", "png":
		return IMAGE
	case PDF:
		return PDF
	}
	return ""
}
