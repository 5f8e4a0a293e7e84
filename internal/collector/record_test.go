package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordString(t *testing.T) {
	r := Record{
		"name":   "port1",
		"empty":  "",
		"null":   nil,
		"num":    float64(1500),
		"int":    7,
		"nested": map[string]any{"a": "b"},
	}

	assert.Equal(t, "port1", r.String("name", "x"))
	assert.Equal(t, "x", r.String("empty", "x"), "empty strings fall back")
	assert.Equal(t, "x", r.String("null", "x"))
	assert.Equal(t, "x", r.String("missing", "x"))
	assert.Equal(t, "1500", r.String("num", "x"))
	assert.Equal(t, "7", r.String("int", "x"))
	assert.Equal(t, "x", r.String("nested", "x"))

	var nilRecord Record
	assert.Equal(t, "d", nilRecord.String("name", "d"))
}

func TestRecordNumber(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"float", float64(1000), 1000},
		{"int", 100, 100},
		{"json number", json.Number("2.5"), 2.5},
		{"speed with duplex suffix", "1000full", 1000},
		{"auto speed", "auto", -1},
		{"padded", " 42 ", 42},
		{"bool", true, -1},
		{"missing", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{"v": tt.value}
			assert.Equal(t, tt.want, r.Number("v", -1))
		})
	}
}

func TestRecordNested(t *testing.T) {
	r := Record{
		"radio_1": map[string]any{"max_bandwidth": float64(867), "band": "5GHz"},
		"results": []any{
			map[string]any{"platform_str": "FortiGate-61E"},
			"not a record",
		},
	}

	assert.Equal(t, "5GHz", r.Record("radio_1").String("band", ""))
	assert.Empty(t, r.Record("radio_2"))

	v, ok := r.Lookup("radio_1", "max_bandwidth")
	require.True(t, ok)
	assert.Equal(t, float64(867), v)

	_, ok = r.Lookup("radio_2", "max_bandwidth")
	assert.False(t, ok)
	_, ok = r.Lookup()
	assert.False(t, ok)

	assert.Equal(t, float64(867), r.LookupNumber(0, "radio_1", "max_bandwidth"))
	assert.Equal(t, float64(0), r.LookupNumber(0, "radio_1", "band"))

	results := r.Records("results")
	require.Len(t, results, 1)
	assert.Equal(t, "FortiGate-61E", results[0].String("platform_str", ""))
}

func TestRecordsAcceptsDecodedRecordElements(t *testing.T) {
	r := Record{
		"results": []any{Record{"platform_str": "FortiGate-61E"}},
		"flat":    []map[string]any{{"name": "port1"}},
	}

	results := r.Records("results")
	require.Len(t, results, 1)
	assert.Equal(t, "FortiGate-61E", results[0].String("platform_str", ""))

	flat := r.Records("flat")
	require.Len(t, flat, 1)
	assert.Equal(t, "port1", flat[0].String("name", ""))
}

func TestFetchError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("wrapped: %w", NewFetchError(SourceSwitches, FailureAuth, cause))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, SourceSwitches, fe.Source)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, FailureAuth, KindOf(err))
	assert.Equal(t, FailureNetwork, KindOf(cause))
	assert.Contains(t, fe.Error(), "switches")
}
