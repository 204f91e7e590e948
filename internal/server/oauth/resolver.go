package oauth

import (
	"context"
	"fmt"
	"strings"
)

// StaticResolver sends every account to one configured authorization server.
// It suits single-PDS deployments; full handle and DID document resolution is
// a separate collaborator.
type StaticResolver struct {
	Server AuthServer
}

func (r StaticResolver) Resolve(_ context.Context, identifier string) (AuthServer, error) {
	if !IsActorIdentifier(identifier) {
		return AuthServer{}, fmt.Errorf("%w: %q is neither a handle nor a DID", ErrResolution, identifier)
	}
	return r.Server, nil
}

// IsActorIdentifier accepts a DID or a domain-style handle.
func IsActorIdentifier(s string) bool {
	if strings.HasPrefix(s, "did:") {
		return didLike(s)
	}
	return handleLike(s)
}

func didLike(s string) bool {
	parts := strings.SplitN(s, ":", 3)
	return len(parts) == 3 && parts[1] != "" && parts[2] != "" && !strings.HasSuffix(s, ":")
}

func handleLike(s string) bool {
	if len(s) == 0 || len(s) > 253 {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 || l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for _, c := range l {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
				return false
			}
		}
	}
	last := labels[len(labels)-1]
	return !(last[0] >= '0' && last[0] <= '9')
}
