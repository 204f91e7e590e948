package timeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/repositories/posts"
)

// EncodeCursor renders k as "<unix ms>:<uri>".
func EncodeCursor(k posts.Key) string {
	return strconv.FormatInt(common.UnixMilli(k.CreatedAt), 10) + ":" + k.URI
}

// DecodeCursor parses a cursor produced by EncodeCursor. The URI part may
// itself contain colons; only the first one separates the fields.
func DecodeCursor(s string) (posts.Key, error) {
	ms, uri, ok := strings.Cut(s, ":")
	if !ok || uri == "" {
		return posts.Key{}, fmt.Errorf("%w: %q", common.ErrInvalidCursor, s)
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return posts.Key{}, fmt.Errorf("%w: %q", common.ErrInvalidCursor, s)
	}
	return posts.Key{CreatedAt: common.FromUnixMilli(n), URI: uri}, nil
}
