// Package urlcodec decodes URLs that were escaped with JavaScript's escape().
package urlcodec

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// DecodeURL reverses JavaScript escape(). "%XX" yields the code point U+00XX
// and "%uXXXX" yields one UTF-16 code unit; surrogate pairs are joined.
// Malformed escapes are copied through unchanged, matching unescape().
func DecodeURL(raw string) string {
	if !strings.Contains(raw, "%") {
		return raw
	}

	units := make([]uint16, 0, len(raw))
	for i := 0; i < len(raw); {
		if raw[i] == '%' {
			if i+6 <= len(raw) && (raw[i+1] == 'u' || raw[i+1] == 'U') {
				if v, ok := parseHex(raw[i+2 : i+6]); ok {
					units = append(units, v)
					i += 6
					continue
				}
			}
			if i+3 <= len(raw) {
				if v, ok := parseHex(raw[i+1 : i+3]); ok {
					units = append(units, v)
					i += 3
					continue
				}
			}
		}

		r, size := utf8.DecodeRuneInString(raw[i:])
		units = utf16.AppendRune(units, r)
		i += size
	}
	return string(utf16.Decode(units))
}

func parseHex(s string) (uint16, bool) {
	var v uint16
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d byte
		switch {
		case '0' <= c && c <= '9':
			d = c - '0'
		case 'a' <= c && c <= 'f':
			d = c - 'a' + 10
		case 'A' <= c && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		v = v<<4 | uint16(d)
	}
	return v, true
}
