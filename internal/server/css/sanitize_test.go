package css

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"keeps plain rules", "body { color: red; background: #fff }", "body { color: red; background: #fff; }"},
		{"drops comments", "/* hi */ a { color: blue; } /* } */", "a { color: blue; }"},
		{"drops import", `@import url("https://evil/x.css"); a { color: red; }`, "a { color: red; }"},
		{"drops unknown at-rule block", "@page { margin: 0; } a { x: y; }", "a { x: y; }"},
		{"keeps media", "@media (max-width: 600px) { a { color: red; } }", "@media (max-width: 600px) { a { color: red; }\n}"},
		{"drops behavior", "a { behavior: url(x.htc); color: red; }", "a { color: red; }"},
		{"drops expression", "a { width: expression(alert(1)); height: 1px; }", "a { height: 1px; }"},
		{"drops expression with spaces", "a { width: expression ( alert(1) ); }", "a { }"},
		{"drops javascript url", "a { background: url(javascript:alert(1)); }", "a { }"},
		{"drops scripted data url", "a { background: url(data:text/html,<script>); }", "a { }"},
		{"strips important on fixed", "div { position: fixed !important; }", "div { position: fixed; }"},
		{"keeps important elsewhere", "div { color: red !important; }", "div { color: red !important; }"},
		{"drops style breakout", "a { color: red; }</style><script>alert(1)</script>", "a { color: red; }"},
		{"drops nested blocks of dropped at-rule", "@font-feature-values X { @swash { a: 1; } } b { c: d; }", "b { c: d; }"},
		{"drops hex-escaped expression", `a { width: expr\65 ssion(alert(1)); color: red; }`, "a { color: red; }"},
		{"drops escaped javascript url", `a { background: url(java\73 cript:alert(1)); }`, "a { }"},
		{"drops escaped property name", `a { beh\61vior: url(x.htc); margin: 0; }`, "a { margin: 0; }"},
		{"keeps braces inside strings", `a::before { content: "}"; color: red; }`, `a::before { content: "}"; color: red; }`},
		{"keeps semicolons inside strings", `q::after { content: "a;b{c"; }`, `q::after { content: "a;b{c"; }`},
		{"drops markup inside strings", `a { content: "</style><script>"; color: red; }`, "a { color: red; }"},
		{"drops unbalanced function", "a { width: calc(1px; color: red; }", "a { color: red; }"},
		{"keeps child combinator", "ul > li { margin: 0; }", "ul > li { margin: 0; }"},
		{"drops stray closing brace", "} a { color: red; } } b { margin: 0; }", "a { color: red; }\nb { margin: 0; }"},
		{"closes unterminated block", "@media print { a { color: red", "@media print { a { color: red; }\n}"},
		{"keeps keyframes", "@keyframes spin { from { opacity: 0; } to { opacity: 1; } }",
			"@keyframes spin { from { opacity: 0; }\nto { opacity: 1; }\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rules{}.Sanitize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRules_TooLarge(t *testing.T) {
	_, err := Rules{}.Sanitize(strings.Repeat("a", MaxSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestRules_Idempotent(t *testing.T) {
	in := "@media print { body { color: black; filter: none; } } p { margin: 0 auto; }"
	once, err := Rules{}.Sanitize(in)
	require.NoError(t, err)
	twice, err := Rules{}.Sanitize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}
