package blobcodec

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Shape names the physical form a stored payload arrived in.
type Shape string

const (
	// ShapeBytes is a native byte sequence.
	ShapeBytes Shape = "bytes"
	// ShapeIndexed is an object whose keys are byte offsets ("0", "1", ...)
	// and whose values are the byte values, as written by an older ORM layer.
	ShapeIndexed Shape = "indexed"
	// ShapeAbsent is a missing or null payload.
	ShapeAbsent Shape = "absent"
	// ShapeUnknown is anything else.
	ShapeUnknown Shape = "unknown"
)

// Detect classifies raw without decoding it.
func Detect(raw any) Shape {
	switch v := raw.(type) {
	case nil:
		return ShapeAbsent
	case []byte:
		if v == nil {
			return ShapeAbsent
		}
		return ShapeBytes
	case json.RawMessage:
		if v == nil {
			return ShapeAbsent
		}
		return ShapeBytes
	case map[string]any, map[int]any:
		return ShapeIndexed
	default:
		return ShapeUnknown
	}
}

// indexedBytes rebuilds a byte sequence from an index-keyed object. Keys are
// parsed leniently and sorted; each value is looked up by its canonical string
// key and truncated to its low eight bits. Keys that parse to the same offset
// ("1" and "01") each contribute the value stored under the canonical key.
// Keys whose digits overflow an int64 are skipped. Missing and null values are
// skipped. The boolean result is false when no byte was produced.
func indexedBytes(raw any) ([]byte, bool) {
	var (
		keys   []int
		lookup func(int) (any, bool)
	)
	switch m := raw.(type) {
	case map[string]any:
		for k := range m {
			if n, ok := keyOffset(k); ok {
				keys = append(keys, n)
			}
		}
		lookup = func(k int) (any, bool) {
			v, ok := m[strconv.Itoa(k)]
			return v, ok
		}
	case map[int]any:
		for k := range m {
			if k >= 0 {
				keys = append(keys, k)
			}
		}
		lookup = func(k int) (any, bool) {
			v, ok := m[k]
			return v, ok
		}
	default:
		return nil, false
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Ints(keys)

	out := make([]byte, 0, len(keys))
	for _, k := range keys {
		v, ok := lookup(k)
		if !ok || v == nil {
			continue
		}
		out = append(out, lowByte(v))
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// lowByte truncates a numeric or numeric-looking value to a single byte.
// Non-numeric values become zero.
func lowByte(v any) byte {
	switch n := v.(type) {
	case float64:
		return byteOfFloat(n)
	case float32:
		return byteOfFloat(float64(n))
	case int:
		return byte(n)
	case int64:
		return byte(n)
	case int32:
		return byte(n)
	case uint8:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return byte(i)
		}
		if f, err := n.Float64(); err == nil {
			return byteOfFloat(f)
		}
		return 0
	case string:
		neg, digits, ok := leadingDigits(n)
		if !ok {
			return 0
		}
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return 0
		}
		if neg {
			f = -f
		}
		return byteOfFloat(f)
	default:
		return 0
	}
}

func byteOfFloat(f float64) byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return byte(int64(math.Trunc(math.Mod(f, 1<<32))))
}

// leadingDigits splits the optional sign and the run of decimal digits at the
// start of s, ignoring leading whitespace and any trailing text. ok is false
// when s has no leading digits.
func leadingDigits(s string) (neg bool, digits string, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return false, "", false
	}
	return neg, s[:end], true
}

// keyOffset parses an index key. Negative keys and keys too large for an
// int64 are rejected.
func keyOffset(key string) (int, bool) {
	neg, digits, ok := leadingDigits(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	if neg && n != 0 {
		return 0, false
	}
	return int(n), true
}
