package parser

import "encoding/json"

// Kind is the type of a JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Member is one key/value pair of an object, in source order.
type Member struct {
	Key   string
	Value *Value
}

// Value is a parsed JSON value. Only the fields matching Kind are set.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  json.Number // literal text as it appeared in the source
	Str     string
	Items   []*Value
	Members []Member
}

// Null returns a null Value.
func Null() *Value { return &Value{Kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }

// Number returns a number Value keeping n's literal text.
func Number(n json.Number) *Value { return &Value{Kind: KindNumber, Number: n} }

// String returns a string Value.
func String(s string) *Value { return &Value{Kind: KindString, Str: s} }

// Array returns an array Value holding items.
func Array(items ...*Value) *Value {
	if items == nil {
		items = make([]*Value, 0)
	}
	return &Value{Kind: KindArray, Items: items}
}

// Object returns an object Value holding members in the given order.
func Object(members ...Member) *Value {
	if members == nil {
		members = make([]Member, 0)
	}
	return &Value{Kind: KindObject, Members: members}
}

// Equal reports whether v and other hold the same value: same kinds, same
// number literals, and same members in the same order.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindNumber:
		return v.Number == other.Number
	case KindString:
		return v.Str == other.Str
	case KindArray:
		if len(v.Items) != len(other.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Members) != len(other.Members) {
			return false
		}
		for i := range v.Members {
			if v.Members[i].Key != other.Members[i].Key {
				return false
			}
			if !v.Members[i].Value.Equal(other.Members[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
