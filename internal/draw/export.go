package draw

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ExportFileName is the download name offered for exported drawings.
const ExportFileName = "drawn_features.geojson"

// Properties the drawing engine sets on its editing handles.
const (
	MarkerMidPoint       = "midPoint"
	MarkerSelectionPoint = "selectionPoint"
)

// ErrSnapshot is returned when a snapshot is not a JSON array.
var ErrSnapshot = errors.New("drawing snapshot must be a JSON array")

// IsHelper reports whether a snapshot feature is an editing handle injected
// by the drawing engine rather than a user shape.
func IsHelper(feature json.RawMessage) bool {
	var f struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(feature, &f); err != nil {
		return false
	}
	return f.Properties[MarkerMidPoint] == true || f.Properties[MarkerSelectionPoint] == true
}

// Filter drops editing handles and returns the remaining features untouched.
func Filter(features []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(features))
	for _, f := range features {
		if IsHelper(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Export parses a snapshot array, drops editing handles and serialises the
// rest as a JSON array. The count of exported features is returned with it.
func Export(snapshot []byte) ([]byte, int, error) {
	var features []json.RawMessage
	if err := json.Unmarshal(snapshot, &features); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	kept := Filter(features)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, f := range kept {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(bytes.TrimSpace(f))
	}
	buf.WriteByte(']')
	return buf.Bytes(), len(kept), nil
}
