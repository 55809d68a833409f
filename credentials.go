package mailinglist

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// maxCredentialGraphemes bounds username and password length. Counted in
// grapheme clusters, not bytes, so multi-codepoint input is not over-rejected.
const maxCredentialGraphemes = 256

// Credentials is a per-request value; it is never persisted and its String
// form never exposes the password.
type Credentials struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func NewCredentials(username, password string) Credentials {
	return Credentials{Username: username, Password: password}
}

func (c Credentials) String() string {
	return "Credentials{username: " + c.Username + ", password: <redacted>}"
}

// CheckBounds enforces the shared length bound on both fields. Oversized
// input is a malformed request, not an identity-dependent rejection, so this
// may return before any hashing happens.
func (c Credentials) CheckBounds() error {
	if uniseg.GraphemeClusterCount(c.Username) > maxCredentialGraphemes {
		return ErrUsernameTooLong
	}
	if uniseg.GraphemeClusterCount(c.Password) > maxCredentialGraphemes {
		return ErrPasswordTooLong
	}
	return nil
}

// DecodeBasicAuth parses an Authorization header value in the Basic scheme
// into Credentials. Each malformation has its own error so the transport
// layer can shape its WWW-Authenticate challenge.
func DecodeBasicAuth(header string) (Credentials, error) {
	if header == "" {
		return Credentials{}, ErrMissingAuthHeader
	}

	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return Credentials{}, ErrWrongAuthScheme
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, ErrInvalidAuthEncoding
	}

	if !utf8.Valid(decoded) {
		return Credentials{}, ErrInvalidAuthEncoding
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return Credentials{}, ErrMissingColon
	}

	creds := NewCredentials(username, password)
	if err := creds.CheckBounds(); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}
