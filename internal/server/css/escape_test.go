package css

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnescape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, `plain`},
		{`expr\65 ssion`, `expression`},
		{`java\73 cript`, `javascript`},
		{`\000065xpression`, `expression`},
		{`beh\61vior`, `behavior`},
		{`\"quoted\"`, `"quoted"`},
		{"a\\62\r\nc", "abc"},
		{`trailing\`, `trailing\`},
		{`\0`, "\uFFFD"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, unescape(tt.in))
		})
	}
}
