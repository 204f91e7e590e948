// Package css cleans user-supplied stylesheets before they are stored and
// later inlined into a page.
package css

import (
	"errors"
	"strings"

	"github.com/gorilla/css/scanner"
)

const MaxSize = 100 * 1024

var ErrTooLarge = errors.New("css exceeds maximum size of 100KB")

// Sanitizer returns a safe version of css. An empty result clears the
// stylesheet.
type Sanitizer interface {
	Sanitize(css string) (string, error)
}

var (
	blockedProperties = map[string]bool{
		"behavior": true, "-moz-binding": true, "binding": true, "link": true, "filter": true,
	}
	blockedFunctions = []string{"expression(", "javascript(", "vbscript(", "import(", "url-prefix(", "domain("}
	blockedSchemes   = []string{"javascript:", "vbscript:"}
	allowedAtRules   = map[string]bool{
		"media": true, "supports": true, "keyframes": true, "font-face": true, "container": true,
	}
)

// Rules drops comments, unknown at-rules, dangerous properties and values,
// and !important on fixed or absolute positioning. Input is tokenized, so
// quoted strings and url() bodies never split a rule, and every check runs
// on the unescaped text.
type Rules struct{}

func (Rules) Sanitize(in string) (string, error) {
	s := strings.TrimSpace(in)
	if len(s) > MaxSize {
		return "", ErrTooLarge
	}
	if s == "" {
		return "", nil
	}

	var (
		out  strings.Builder
		seg  []*scanner.Token
		open int // blocks written and not yet closed
		skip int // depth of a dropped block
	)
	sc := scanner.New(s)
	for {
		tok := sc.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			// trailing declaration without terminator
			if skip == 0 && open > 0 {
				writeDecl(&out, seg)
			}
			for ; open > 0; open-- {
				out.WriteString("}\n")
			}
			break
		}

		switch tok.Type {
		case scanner.TokenComment, scanner.TokenCDO, scanner.TokenCDC, scanner.TokenBOM:
			continue
		case scanner.TokenChar:
		default:
			seg = append(seg, tok)
			continue
		}

		switch tok.Value {
		case "{":
			if skip > 0 || !blockAllowed(seg) {
				skip++
			} else {
				out.WriteString(text(seg))
				out.WriteString(" { ")
				open++
			}
		case "}":
			switch {
			case skip > 0:
				skip--
			case open > 0:
				writeDecl(&out, seg)
				out.WriteString("}\n")
				open--
			}
		case ";":
			if skip == 0 && open > 0 {
				writeDecl(&out, seg)
			}
		default:
			seg = append(seg, tok)
			continue
		}
		seg = seg[:0]
	}
	return strings.TrimSpace(out.String()), nil
}

// blockAllowed reports whether a selector or at-rule prelude may open a block.
func blockAllowed(prelude []*scanner.Token) bool {
	prelude = trim(prelude)
	if len(prelude) == 0 || !valueSafe(prelude) {
		return false
	}
	if prelude[0].Type != scanner.TokenAtKeyword {
		return true
	}
	name := strings.ToLower(unescape(strings.TrimPrefix(prelude[0].Value, "@")))
	name = strings.TrimPrefix(name, "-webkit-")
	return allowedAtRules[name]
}

func writeDecl(out *strings.Builder, seg []*scanner.Token) {
	seg = trim(seg)
	if len(seg) == 0 || seg[0].Type != scanner.TokenIdent {
		// at-rule statements such as @import end up here too
		return
	}

	colon := -1
	for i, t := range seg {
		if t.Type == scanner.TokenChar && t.Value == ":" {
			colon = i
			break
		}
	}
	if colon < 0 {
		return
	}
	name := trim(seg[:colon])
	value := trim(seg[colon+1:])
	if len(name) != 1 || len(value) == 0 {
		return
	}

	prop := strings.ToLower(unescape(name[0].Value))
	if blockedProperties[prop] || !valueSafe(name) || !valueSafe(value) {
		return
	}

	if prop == "position" {
		if bare, ok := stripImportant(value); ok {
			switch strings.ToLower(unescape(text(bare))) {
			case "fixed", "absolute":
				value = bare
			}
		}
	}

	out.WriteString(strings.ToLower(name[0].Value))
	out.WriteString(": ")
	out.WriteString(text(value))
	out.WriteString("; ")
}

// stripImportant returns value without a trailing "!important".
func stripImportant(value []*scanner.Token) ([]*scanner.Token, bool) {
	n := len(value)
	if n < 2 {
		return value, false
	}
	last, bang := value[n-1], trim(value[:n-1])
	if last.Type != scanner.TokenIdent || !strings.EqualFold(unescape(last.Value), "important") {
		return value, false
	}
	if len(bang) == 0 {
		return value, false
	}
	if b := bang[len(bang)-1]; b.Type != scanner.TokenChar || b.Value != "!" {
		return value, false
	}
	return trim(bang[:len(bang)-1]), true
}

// valueSafe rejects blocked functions and schemes after unescaping, markup,
// unbalanced parentheses and stray quotes or backslashes the scanner could
// not fold into a token.
func valueSafe(toks []*scanner.Token) bool {
	depth := 0
	for _, t := range toks {
		if strings.Contains(t.Value, "<") {
			return false
		}
		switch t.Type {
		case scanner.TokenFunction:
			depth++
		case scanner.TokenChar:
			switch t.Value {
			case "(":
				depth++
			case ")":
				depth--
			case `"`, "'", `\`:
				return false
			}
		}
		if depth < 0 {
			return false
		}
	}
	if depth != 0 {
		return false
	}

	decoded := strings.ToLower(unescape(text(toks)))
	compact := strings.Join(strings.Fields(decoded), "")
	for _, fn := range blockedFunctions {
		if strings.Contains(compact, fn) {
			return false
		}
	}
	for _, scheme := range blockedSchemes {
		if strings.Contains(compact, scheme) {
			return false
		}
	}
	return !(strings.Contains(compact, "data:") && strings.Contains(compact, "script"))
}

// text renders tokens back to source, folding runs of whitespace into one space.
func text(toks []*scanner.Token) string {
	var b strings.Builder
	for _, t := range toks {
		if t.Type == scanner.TokenS {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(t.Value)
	}
	return strings.TrimSpace(b.String())
}

func trim(toks []*scanner.Token) []*scanner.Token {
	for len(toks) > 0 && toks[0].Type == scanner.TokenS {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].Type == scanner.TokenS {
		toks = toks[:len(toks)-1]
	}
	return toks
}
