package css

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// unescape resolves CSS escapes: a backslash followed by one to six hex
// digits (and one optional whitespace) or by any other character.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(s) && j-i <= 6 && isHex(s[j]) {
			j++
		}
		if j == i+1 {
			// \X stands for X itself
			b.WriteByte(s[j])
			i = j
			continue
		}

		n, _ := strconv.ParseUint(s[i+1:j], 16, 32)
		r := rune(n)
		if n == 0 || n > unicode.MaxRune || (r >= 0xD800 && r <= 0xDFFF) {
			r = utf8.RuneError
		}
		b.WriteRune(r)

		switch {
		case j+1 < len(s) && s[j] == '\r' && s[j+1] == '\n':
			j += 2
		case j < len(s) && isSpace(s[j]):
			j++
		}
		i = j - 1
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
