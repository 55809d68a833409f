package mailinglist

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// subscription tokens carry 64 random bytes
	tokenByteLen = 64
	// TokenLength is the encoded form: 64 bytes base64url without padding
	TokenLength = 86
)

// TokenIssuer generates and validates subscription tokens. The zero source
// is crypto/rand; tests may inject a deterministic reader.
type TokenIssuer struct {
	rand io.Reader
}

type TokenIssuerOption func(*TokenIssuer) *TokenIssuer

func NewTokenIssuer(opts ...TokenIssuerOption) *TokenIssuer {
	i := &TokenIssuer{rand: rand.Reader}
	for _, opt := range opts {
		i = opt(i)
	}
	return i
}

// WithTokenRand overrides the byte source. Tests only.
func WithTokenRand(r io.Reader) TokenIssuerOption {
	return func(i *TokenIssuer) *TokenIssuer {
		i.rand = r
		return i
	}
}

// Generate draws 64 bytes and encodes them base64url without padding,
// yielding a fixed 86 character token.
func (i *TokenIssuer) Generate() (string, error) {
	raw := make([]byte, tokenByteLen)
	if _, err := io.ReadFull(i.rand, raw); err != nil {
		return "", fmt.Errorf("subscription token entropy: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Parse accepts candidate only if it decodes via the same alphabet to exactly
// 64 bytes. Truncated, padded, or alien-alphabet forgeries are rejected with
// ErrTokenInvalid before any storage lookup happens.
func (i *TokenIssuer) Parse(candidate string) (string, error) {
	if len(candidate) != TokenLength {
		return "", ErrTokenInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(candidate)
	if err != nil || len(raw) != tokenByteLen {
		return "", ErrTokenInvalid
	}

	return candidate, nil
}
