package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Style selects how Encode lays out a document.
type Style int

const (
	// StylePretty puts one member or element per line, indented by two spaces.
	StylePretty Style = iota
	// StyleCompact drops all insignificant whitespace.
	StyleCompact
)

const indentUnit = "  "

// String returns the string representation of the Style
func (s Style) String() string {
	switch s {
	case StylePretty:
		return "pretty"
	case StyleCompact:
		return "compact"
	default:
		return "unknown"
	}
}

// StyleFor maps the minify switch to a Style.
func StyleFor(minify bool) Style {
	if minify {
		return StyleCompact
	}
	return StylePretty
}

// Encode serializes v in the requested style. The output has no trailing newline.
func Encode(v *Value, style Style) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot encode nil value")
	}

	e := &encoder{pretty: style == StylePretty}
	e.str = json.NewEncoder(&e.buf)
	e.str.SetEscapeHTML(false)

	if err := e.value(v, 0); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf    bytes.Buffer
	str    *json.Encoder
	pretty bool
}

func (e *encoder) value(v *Value, depth int) error {
	switch v.Kind {
	case KindNull:
		e.buf.WriteString("null")
	case KindBool:
		if v.Bool {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
	case KindNumber:
		if v.Number == "" {
			return fmt.Errorf("number value has no literal")
		}
		e.buf.WriteString(v.Number.String())
	case KindString:
		return e.string(v.Str)
	case KindArray, KindObject:
		if depth >= MaxDepth {
			return fmt.Errorf("%w %d", ErrTooDeep, MaxDepth)
		}
		if v.Kind == KindArray {
			return e.array(v, depth)
		}
		return e.object(v, depth)
	default:
		return fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return nil
}

func (e *encoder) array(v *Value, depth int) error {
	if len(v.Items) == 0 {
		e.buf.WriteString("[]")
		return nil
	}

	e.buf.WriteByte('[')
	for i, item := range v.Items {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		if err := e.value(item, depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) object(v *Value, depth int) error {
	if len(v.Members) == 0 {
		e.buf.WriteString("{}")
		return nil
	}

	e.buf.WriteByte('{')
	for i, m := range v.Members {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		if err := e.string(m.Key); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		if e.pretty {
			e.buf.WriteByte(' ')
		}
		if err := e.value(m.Value, depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) newline(depth int) {
	if !e.pretty {
		return
	}
	e.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		e.buf.WriteString(indentUnit)
	}
}

// string writes s quoted and escaped. json.Encoder appends a newline after
// each value, which is cut off again.
func (e *encoder) string(s string) error {
	if err := e.str.Encode(s); err != nil {
		return fmt.Errorf("failed to encode string: %w", err)
	}
	e.buf.Truncate(e.buf.Len() - 1)
	return nil
}
