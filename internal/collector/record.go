package collector

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one raw, open-ended record returned by a collector fetch.
// Lookups never fail: every getter takes the literal default to use when the
// key is absent or holds an unusable value.
type Record map[string]any

// Value returns the raw value for key, or def when absent or nil
func (r Record) Value(key string, def any) any {
	if r == nil {
		return def
	}
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	return v
}

// String returns the string value for key. Absent, empty and non-string
// values yield def; numbers are formatted.
func (r Record) String(key, def string) string {
	switch v := r.Value(key, nil).(type) {
	case string:
		if v == "" {
			return def
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	}
	return def
}

// Number returns the numeric value for key. Strings are parsed from their
// leading digits, so "1000full" yields 1000 and "auto" yields def.
func (r Record) Number(key string, def float64) float64 {
	if n, ok := toNumber(r.Value(key, nil)); ok {
		return n
	}
	return def
}

// Record returns the nested record under key, or an empty record
func (r Record) Record(key string) Record {
	switch v := r.Value(key, nil).(type) {
	case Record:
		return v
	case map[string]any:
		return Record(v)
	}
	return Record{}
}

// Records returns the list of nested records under key. Non-record elements
// are skipped.
func (r Record) Records(key string) []Record {
	var out []Record
	switch v := r.Value(key, nil).(type) {
	case []Record:
		return v
	case []map[string]any:
		for _, m := range v {
			out = append(out, Record(m))
		}
	case []any:
		for _, item := range v {
			switch m := item.(type) {
			case Record:
				out = append(out, m)
			case map[string]any:
				out = append(out, Record(m))
			}
		}
	}
	return out
}

// Lookup walks nested records along path
func (r Record) Lookup(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur := r
	for i, key := range path {
		v := cur.Value(key, nil)
		if v == nil {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		next := cur.Record(key)
		if len(next) == 0 {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// LookupNumber walks path and converts the leaf like Number
func (r Record) LookupNumber(def float64, path ...string) float64 {
	v, ok := r.Lookup(path...)
	if !ok {
		return def
	}
	if n, ok := toNumber(v); ok {
		return n
	}
	return def
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return leadingNumber(n)
	}
	return 0, false
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
