package concat

import (
	"fmt"

	"single-sign/shared"
)

// ScanRanges finds the byte ranges of concatenated JSON objects inside a
// buffer by matching braces. Nested objects are handled, and braces that
// appear inside JSON string literals (with escape handling) are ignored.
// It lets a holder of signed bytes re-derive the ranges without access to
// the documents the buffer was built from.
//
// JSON structural characters are ASCII, so scanning bytes is safe: no UTF-8
// continuation byte can alias '"', '\', '{' or '}'.
func ScanRanges(buf []byte) ([]shared.DigestRange, error) {
	var ranges []shared.DigestRange
	depth := 0
	inString := false
	escape := false
	start := -1

	for i, b := range buf {
		if inString {
			if escape {
				escape = false
				continue
			}
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				return nil, fmt.Errorf("unmatched closing brace at byte %d", i)
			}
			depth--
			if depth == 0 {
				ranges = append(ranges, shared.DigestRange{Start: start, End: i + 1})
				start = -1
			}
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unclosed JSON object, brace depth %d at end of input", depth)
	}
	return ranges, nil
}
