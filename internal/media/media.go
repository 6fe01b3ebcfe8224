// Package media decodes inline image data carried in data: URIs. Conversion never fetches
// remote URLs, so providers that only accept inline bytes (Anthropic base64 blocks, Gemini
// inline data, Ollama images) use this package and reject plain URLs they cannot express.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultMaxBytes is the decoded size limit for inline images (10 MiB).
const DefaultMaxBytes = 10 << 20

var (
	// ErrNotDataURI is returned when the URL is not a data: URI.
	ErrNotDataURI = errors.New("media: not a data URI")
	// ErrMalformed is returned for data URIs that are not base64 encoded or fail to decode.
	ErrMalformed = errors.New("media: malformed data URI")
	// ErrTooLarge is returned when the decoded payload exceeds the size limit.
	ErrTooLarge = errors.New("media: inline data exceeds size limit")
	// ErrUnsupportedType is returned when the MIME type is not an image type.
	ErrUnsupportedType = errors.New("media: unsupported content type")
)

// allowedImagePrefixes are MIME prefixes accepted for image media.
var allowedImagePrefixes = []string{"image/"}

// Inline is decoded inline media.
type Inline struct {
	MIMEType string
	Data     []byte
	// Base64 is the payload exactly as it appeared in the URI.
	Base64 string
}

// IsDataURI reports whether rawURL uses the data: scheme.
func IsDataURI(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "data:")
}

// IsRemote reports whether rawURL is an http or https URL.
func IsRemote(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}

// DecodeImage decodes a base64 data: URI holding an image. fallbackMIME is used when the URI
// does not declare a media type. maxBytes <= 0 means DefaultMaxBytes.
func DecodeImage(rawURL, fallbackMIME string, maxBytes int) (Inline, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if !IsDataURI(rawURL) {
		return Inline{}, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(rawURL[len("data:"):], ",")
	if !ok {
		return Inline{}, fmt.Errorf("%w: missing comma", ErrMalformed)
	}
	params := strings.Split(header, ";")
	if params[len(params)-1] != "base64" {
		return Inline{}, fmt.Errorf("%w: only base64 payloads are supported", ErrMalformed)
	}
	mime := strings.TrimSpace(params[0])
	if mime == "" || mime == "base64" {
		mime = fallbackMIME
	}
	if mime == "" {
		mime = "image/png"
	}
	if !allowedType(mime) {
		return Inline{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return Inline{}, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Inline{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(data) > maxBytes {
		return Inline{}, ErrTooLarge
	}
	return Inline{MIMEType: mime, Data: data, Base64: payload}, nil
}

func allowedType(mime string) bool {
	for _, prefix := range allowedImagePrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}
