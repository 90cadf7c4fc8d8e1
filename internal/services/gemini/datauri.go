package gemini

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// parseDataURI splits a data URI into mime type and raw bytes.
func parseDataURI(uri string) (string, []byte, error) {
	trimmed := strings.TrimSpace(uri)
	if !strings.HasPrefix(trimmed, "data:") {
		return "", nil, fmt.Errorf("not a data uri")
	}
	rest := trimmed[len("data:"):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("malformed data uri")
	}
	meta := rest[:comma]
	payload := rest[comma+1:]

	mime := meta
	if idx := strings.IndexByte(meta, ';'); idx >= 0 {
		mime = meta[:idx]
	}
	if mime == "" {
		mime = "image/png"
	}
	if !strings.Contains(meta, "base64") {
		return "", nil, fmt.Errorf("data uri is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data uri: %w", err)
	}
	return mime, data, nil
}

// encodeDataURI builds a data URI from raw image bytes.
func encodeDataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
