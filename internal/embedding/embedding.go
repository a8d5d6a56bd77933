package embedding

import (
	"encoding/json"
	"math"
	"strings"
)

// Dimensions is the only vector length accepted from storage.
const Dimensions = 1536

// Vector is a normalized embedding with exactly Dimensions components.
type Vector []float64

// Parse normalizes a stored embedding payload. Storage hands vectors back either as numeric
// arrays or as JSON-encoded strings; anything that does not decode to Dimensions numbers is
// reported as absent.
func Parse(raw any) (Vector, bool) {
	switch val := raw.(type) {
	case nil:
		return nil, false
	case Vector:
		return checked(val)
	case []float64:
		return checked(Vector(val))
	case []float32:
		out := make(Vector, len(val))
		for i, f := range val {
			out[i] = float64(f)
		}
		return checked(out)
	case []any:
		out := make(Vector, 0, len(val))
		for _, item := range val {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return checked(out)
	case string:
		return parseJSON([]byte(strings.TrimSpace(val)))
	case []byte:
		return parseJSON(val)
	case json.RawMessage:
		return parseJSON(val)
	case *string:
		if val == nil {
			return nil, false
		}
		return Parse(*val)
	default:
		return nil, false
	}
}

func parseJSON(data []byte) (Vector, bool) {
	if len(data) == 0 {
		return nil, false
	}

	var decoded []float64
	if err := json.Unmarshal(data, &decoded); err != nil {
		// a JSON string wrapping the array, as some drivers return text columns
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, false
		}
		return parseJSON([]byte(strings.TrimSpace(inner)))
	}

	return checked(Vector(decoded))
}

func checked(v Vector) (Vector, bool) {
	if len(v) != Dimensions {
		return nil, false
	}
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
	}
	return v, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is absent or has no
// magnitude.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
