package parser

import "bytes"

// BOM identifies a byte-order marker found at the start of a document.
type BOM int

const (
	BOMNone BOM = iota
	BOMUTF8
	BOMUTF16LE
	BOMUTF16BE
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// String returns the string representation of the BOM
func (b BOM) String() string {
	switch b {
	case BOMUTF8:
		return "utf-8"
	case BOMUTF16LE:
		return "utf-16le"
	case BOMUTF16BE:
		return "utf-16be"
	default:
		return "none"
	}
}

// DetectBOM reports which byte-order marker data starts with.
func DetectBOM(data []byte) BOM {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return BOMUTF8
	case bytes.HasPrefix(data, bomUTF16LE):
		return BOMUTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return BOMUTF16BE
	default:
		return BOMNone
	}
}

// StripBOM returns data without its leading byte-order marker, and the marker
// that was removed. Only the prefix is dropped; the remaining bytes are not
// re-decoded. The returned slice shares data's backing array.
func StripBOM(data []byte) ([]byte, BOM) {
	bom := DetectBOM(data)
	switch bom {
	case BOMUTF8:
		return data[len(bomUTF8):], bom
	case BOMUTF16LE:
		return data[len(bomUTF16LE):], bom
	case BOMUTF16BE:
		return data[len(bomUTF16BE):], bom
	default:
		return data, bom
	}
}
