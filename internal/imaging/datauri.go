// Package imaging decodes the base64 data URIs the kiosk camera widget
// submits and normalizes them into a canonical JPEG representation before
// they reach the face engine or the identity store.
package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataURI is returned when the submitted image field is not a
// well-formed base64 data URI.
var ErrInvalidDataURI = errors.New("invalid image data URI")

// DecodeDataURI extracts the raw image bytes from a
// "data:image/...;base64,<payload>" string.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:image/") {
		return nil, fmt.Errorf("%w: missing data:image prefix", ErrInvalidDataURI)
	}

	_, payload, found := strings.Cut(uri, ",")
	if !found || payload == "" {
		return nil, fmt.Errorf("%w: missing base64 payload", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return data, nil
}

// EncodeDataURI encodes raw image bytes back into a data URI for display.
// The MIME type is sniffed from the magic bytes.
func EncodeDataURI(data []byte) string {
	return "data:" + DetectMIMEType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DetectMIMEType detects the MIME type from image data.
func DetectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
