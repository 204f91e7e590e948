// Package oauthstore implements the authorization state and session stores
// on top of the SQL repositories, with an optional Redis backend for state.
package oauthstore

import (
	"encoding/json"
	"fmt"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/cryptox"
)

// codec seals values before they reach storage. A nil sealer stores plaintext.
type codec struct {
	sealer *cryptox.Sealer
}

func (c codec) encode(b []byte) (string, error) {
	if c.sealer == nil {
		return string(b), nil
	}
	return c.sealer.Seal(b)
}

// encodeJSON seals the JSON form of v as a whole.
func (c codec) encodeJSON(v any) (string, error) {
	if c.sealer == nil {
		b, err := json.Marshal(v)
		return string(b), err
	}
	return c.sealer.SealJSON(v)
}

func (c codec) decodeJSON(s string, v any) error {
	if c.sealer == nil {
		return json.Unmarshal([]byte(s), v)
	}
	if err := c.sealer.OpenJSON(s, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrCorruptRecord, err)
	}
	return nil
}

func (c codec) decode(s string) ([]byte, error) {
	if c.sealer == nil {
		return []byte(s), nil
	}
	b, err := c.sealer.Open(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptRecord, err)
	}
	return b, nil
}
