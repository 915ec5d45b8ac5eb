package inventory

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// coerceCount truncates toward zero and floors at 0.
func coerceCount(value any) int {
	f := coerceAmount(value)
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func coerceAmount(value any) float64 {
	f, ok := looseNumber(value)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// looseNumber reads any numeric kind, json.Number or numeric string. nil and
// blank strings read as 0. ok is false for anything else, NaN and infinities.
func looseNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case nil:
		return 0, true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			f = float64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		case reflect.String:
			return looseNumber(rv.String())
		default:
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stampLayouts are tried in order when reading stored timestamps.
var stampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly}

// looseTime parses a stored timestamp. Missing or blank values read as the
// zero time; ok is false only when a value is present and unreadable.
func looseTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, true
		}
		for _, layout := range stampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
