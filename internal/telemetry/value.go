package telemetry

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNumber
	KindString
	KindBool
	KindOther
)

// Value is a single metric value as sent by the server. Servers mix numbers,
// enum-like strings ("P0", "Active"), booleans and the occasional nested
// array, and use null or placeholder strings for metrics a GPU lacks.
type Value struct {
	kind Kind
	num  float64
	str  string
	raw  json.RawMessage
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = Value{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '[', '{':
		v.kind = KindOther
		v.raw = append(json.RawMessage(nil), data...)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*v = Number(f)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.num != 0)
	case KindOther:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// Kind reports what the value holds.
func (v Value) Kind() Kind { return v.kind }

// Available reports whether the value carries data. Missing, null, and the
// placeholder strings "N/A", "Unknown" and "" are unavailable.
func (v Value) Available() bool {
	switch v.kind {
	case KindAbsent:
		return false
	case KindString:
		return !isPlaceholder(v.str)
	default:
		return true
	}
}

// Float returns the numeric form of the value. Numeric strings parse;
// booleans are 1 or 0.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber, KindBool:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Truthy reports the boolean reading of the value.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber, KindBool:
		return v.num != 0
	case KindString:
		s := strings.ToLower(strings.TrimSpace(v.str))
		return s != "" && s != "false" && s != "no" && s != "0" && !isPlaceholder(v.str)
	default:
		return false
	}
}

// Text returns a display form of the value.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindOther:
		return string(v.raw)
	default:
		return ""
	}
}

func isPlaceholder(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "N/A", "Unknown":
		return true
	}
	return false
}
