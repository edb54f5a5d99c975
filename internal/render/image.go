package render

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// DecodeImage decodes a base64 image payload and sniffs its content type.
// A "data:image/png;base64," prefix is tolerated.
func DecodeImage(encoded string) ([]byte, string, error) {
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	if encoded == "" {
		return nil, "", ErrNoData
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return data, http.DetectContentType(data), nil
}
