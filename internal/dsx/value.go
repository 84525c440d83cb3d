package dsx

import (
	"strconv"
	"strings"
)

// ValueKind discriminates the variants of a DSX property value.
type ValueKind int

const (
	// KindString is a quoted string property.
	KindString ValueKind = iota
	// KindInt is an unquoted integer literal.
	KindInt
	// KindBool is a bare boolean flag or an unquoted true/false literal.
	KindBool
	// KindHeredoc is a multi-line heredoc value.
	KindHeredoc
)

// Value is the single variant type for DSX property values. DataStage mixes
// strings, numbers, and booleans freely; all coercion is centralized here.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int creates an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Heredoc creates a heredoc value.
func Heredoc(s string) Value { return Value{kind: KindHeredoc, s: s} }

// Kind returns the value's variant kind.
func (v Value) Kind() ValueKind { return v.kind }

// AsString renders the value as a string regardless of kind.
func (v Value) AsString() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		if v.b {
			return "1"
		}

		return "0"
	default:
		return v.s
	}
}

// AsInt coerces the value to an integer. Non-numeric strings yield ok=false.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindBool:
		if v.b {
			return 1, true
		}

		return 0, true
	default:
		n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, false
		}

		return n, true
	}
}

// AsBool coerces the value to a boolean. DSX encodes booleans as bare flags,
// "0"/"1" literals, and "true"/"false" strings.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	default:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	}
}

// parseScalar interprets an unquoted literal as int, bool, or string.
func parseScalar(raw string) Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Int(n)
	}

	switch strings.ToLower(raw) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	return String(raw)
}
