// Package parser reads and writes JSON documents without losing member order
// or number formatting.
//
// Parse builds a Value tree from raw bytes using encoding/json's token stream
// with UseNumber, so every number keeps the literal text it had in the source
// (1, 1.0 and 1e3 stay distinct) and object members keep their order,
// duplicates included. Encode renders a Value either compact or indented with
// two spaces. Encoding a parsed document and parsing the result again yields
// an equal Value, and encoding that Value again yields the same bytes.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Extension is the file extension of documents the parser understands.
const Extension = ".json"

// MaxDepth is the deepest nesting of arrays and objects Parse accepts.
const MaxDepth = 10000

var (
	// ErrEmptyDocument is returned when the input holds no JSON value.
	ErrEmptyDocument = errors.New("empty document")
	// ErrTrailingData is returned when non-whitespace follows the top-level value.
	ErrTrailingData = errors.New("trailing data after top-level value")
	// ErrInvalidUTF8 is returned when the input is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
	// ErrLoneSurrogate is returned for a \u escape of a UTF-16 surrogate without its pair.
	ErrLoneSurrogate = errors.New("unpaired surrogate escape")
	// ErrTooDeep is returned when nesting exceeds MaxDepth.
	ErrTooDeep = errors.New("exceeded max nesting depth")
)

// Parse decodes data into a Value.
// Input that encoding/json would silently repair is rejected instead: invalid
// UTF-8 and unpaired surrogate escapes both decode to U+FFFD, which would
// change the document when it is written back.
func Parse(data []byte) (*Value, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("invalid JSON: %w", ErrInvalidUTF8)
	}
	if err := checkSurrogates(data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, ErrEmptyDocument
	}
	if err != nil {
		return nil, describe(err)
	}

	v, err := parseToken(dec, tok, 0)
	if err != nil {
		return nil, describe(err)
	}

	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, describe(err)
		}
		return nil, fmt.Errorf("%w at offset %d", ErrTrailingData, dec.InputOffset())
	}

	return v, nil
}

func parseValue(dec *json.Decoder, depth int) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return parseToken(dec, tok, depth)
}

// parseToken builds the value starting with tok. depth is the number of
// containers enclosing it.
func parseToken(dec *json.Decoder, tok json.Token, depth int) (*Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return nil, fmt.Errorf("%w %d at offset %d", ErrTooDeep, MaxDepth, dec.InputOffset())
		}
		switch t {
		case '{':
			return parseObject(dec, depth+1)
		case '[':
			return parseArray(dec, depth+1)
		default:
			return nil, fmt.Errorf("unexpected %q at offset %d", rune(t), dec.InputOffset())
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	default:
		return nil, fmt.Errorf("unexpected token %v at offset %d", tok, dec.InputOffset())
	}
}

func parseObject(dec *json.Decoder, depth int) (*Value, error) {
	obj := &Value{Kind: KindObject, Members: make([]Member, 0)}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string at offset %d", dec.InputOffset())
		}

		val, err := parseValue(dec, depth)
		if err != nil {
			return nil, err
		}
		obj.Members = append(obj.Members, Member{Key: key, Value: val})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder, depth int) (*Value, error) {
	arr := &Value{Kind: KindArray, Items: make([]*Value, 0)}

	for dec.More() {
		val, err := parseValue(dec, depth)
		if err != nil {
			return nil, err
		}
		arr.Items = append(arr.Items, val)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return arr, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q at offset %d", rune(want), dec.InputOffset())
	}
	return nil
}

// checkSurrogates scans the string literals of data for \u escapes in the
// surrogate range D800-DFFF and reports any that are not a high surrogate
// immediately followed by a low surrogate. Malformed escapes are left for the
// decoder to report.
func checkSurrogates(data []byte) error {
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			continue
		}
		switch c {
		case '"':
			inString = false
		case '\\':
			if i+1 >= len(data) {
				return nil
			}
			if data[i+1] != 'u' {
				i++
				continue
			}
			r, ok := hexEscape(data, i)
			if !ok {
				i++
				continue
			}
			switch {
			case r >= 0xD800 && r <= 0xDBFF:
				low, ok := hexEscape(data, i+6)
				if !ok || low < 0xDC00 || low > 0xDFFF {
					return fmt.Errorf("%w \\u%04x at offset %d", ErrLoneSurrogate, r, i)
				}
				i += 11
			case r >= 0xDC00 && r <= 0xDFFF:
				return fmt.Errorf("%w \\u%04x at offset %d", ErrLoneSurrogate, r, i)
			default:
				i += 5
			}
		}
	}
	return nil
}

// hexEscape decodes the \uXXXX escape starting at data[i].
func hexEscape(data []byte, i int) (rune, bool) {
	if i+6 > len(data) || data[i] != '\\' || data[i+1] != 'u' {
		return 0, false
	}
	var r rune
	for _, c := range data[i+2 : i+6] {
		switch {
		case c >= '0' && c <= '9':
			c -= '0'
		case c >= 'a' && c <= 'f':
			c = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			c = c - 'A' + 10
		default:
			return 0, false
		}
		r = r<<4 | rune(c)
	}
	return r, true
}

// describe adds the byte offset to syntax errors coming from encoding/json.
func describe(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("invalid JSON at offset %d: %w", syntaxErr.Offset, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("invalid JSON: unexpected end of input: %w", io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("invalid JSON: %w", err)
}
