package outcome

// Bag is the loosely-typed key/value payload a result event carries. Host
// bridges deliver these as decoded JSON, so numbers may arrive as float64,
// int or int64 depending on the path taken. All getters are null-safe:
// a missing or mistyped key yields the zero value for the requested shape.
type Bag map[string]any

// String returns the string under key, or "" when absent or not a string.
func (b Bag) String(key string) string {
	if b == nil {
		return ""
	}
	if s, ok := b[key].(string); ok {
		return s
	}
	return ""
}

// Float returns the numeric value under key as float64, defaulting to 0.
func (b Bag) Float(key string) float64 {
	if b == nil {
		return 0
	}
	switch v := b[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int returns the numeric value under key as int, defaulting to 0.
func (b Bag) Int(key string) int {
	if b == nil {
		return 0
	}
	switch v := b[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the boolean under key, defaulting to false.
func (b Bag) Bool(key string) bool {
	if b == nil {
		return false
	}
	if v, ok := b[key].(bool); ok {
		return v
	}
	return false
}

// Sub returns a nested bag under key. A missing or mistyped entry yields
// nil, which the getters above treat as empty.
func (b Bag) Sub(key string) Bag {
	if b == nil {
		return nil
	}
	switch v := b[key].(type) {
	case Bag:
		return v
	case map[string]any:
		return Bag(v)
	default:
		return nil
	}
}
