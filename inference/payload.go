package inference

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/[^;]+;base64,`)

// DecodePayload extracts image bytes from a predict request body. The body is either a JSON
// string or a JSON object with an "image" field, holding base64 optionally wrapped in a data URL.
func DecodePayload(body []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: body is not JSON", ErrDecode)
	}

	var encoded string
	switch t := v.(type) {
	case string:
		encoded = t
	case map[string]interface{}:
		encoded, _ = t["image"].(string)
	}
	encoded = strings.TrimSpace(dataURLPrefix.ReplaceAllString(strings.TrimSpace(encoded), ""))
	if encoded == "" {
		return nil, fmt.Errorf("%w: no image in payload", ErrDecode)
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(encoded); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: image is not base64", ErrDecode)
}
