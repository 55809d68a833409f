package mailinglist

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. These are fixed configuration constants, never request
// input, and match the parameters embedded in PlaceholderPasswordHash.
const (
	argonMemory  uint32 = 19456
	argonTime    uint32 = 2
	argonThreads uint8  = 1
	argonSaltLen        = 16
	argonKeyLen  uint32 = 32
)

// PlaceholderPasswordHash is verified against when a username has no row, so
// that authentication always performs a full Argon2id computation. It encodes
// a throwaway password; verification against it can never succeed.
const PlaceholderPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$DqfdT4sWTiKO8R19hTTtyg$DWeO60WYNYRhAdju0/dzYNhrtmb0jZ6+/ceCHyNKNfk"

// PasswordHasher derives and verifies Argon2id password hashes in the
// self-describing PHC string format. Construct one with NewPasswordHasher and
// share it; the embedded semaphore keeps hashing off the request scheduler by
// bounding the number of concurrent derivations to the CPU count.
type PasswordHasher struct {
	rand   io.Reader
	sem    chan struct{}
	logger Logger
}

type PasswordHasherOption func(*PasswordHasher) *PasswordHasher

func NewPasswordHasher(opts ...PasswordHasherOption) *PasswordHasher {
	h := &PasswordHasher{
		rand:   rand.Reader,
		sem:    make(chan struct{}, runtime.GOMAXPROCS(0)),
		logger: defLogger{},
	}

	for _, opt := range opts {
		h = opt(h)
	}

	return h
}

func WithHasherLogger(logger Logger) PasswordHasherOption {
	return func(h *PasswordHasher) *PasswordHasher {
		h.logger = logger
		return h
	}
}

// WithHasherRand overrides the salt source. Tests only.
func WithHasherRand(r io.Reader) PasswordHasherOption {
	return func(h *PasswordHasher) *PasswordHasher {
		h.rand = r
		return h
	}
}

// Hash derives a fresh salt and returns the PHC encoded Argon2id hash of
// password. It blocks while a CPU slot is acquired, honoring ctx.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	salt := make([]byte, argonSaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("password hash salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return encodeHash(salt, key), nil
}

// Verify recomputes the hash of password with the salt and parameters
// embedded in encoded and compares in constant time. Every failure mode,
// including an unparsable stored hash, is reported as ErrPasswordInvalid so
// aggregating callers cannot build an oracle; the distinction is logged.
func (h *PasswordHasher) Verify(ctx context.Context, password, encoded string) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()

	salt, key, params, err := decodeHash(encoded)
	if err != nil {
		h.logger.Debug("stored password hash unparsable: %s", err)
		return ErrPasswordInvalid
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(key)))

	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return ErrPasswordInvalid
	}

	return nil
}

func (h *PasswordHasher) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *PasswordHasher) release() {
	<-h.sem
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func encodeHash(salt, key []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodeHash(encoded string) (salt, key []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, nil, params, fmt.Errorf("malformed hash string")
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, fmt.Errorf("malformed version segment")
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return nil, nil, params, fmt.Errorf("malformed parameter segment")
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, params, fmt.Errorf("malformed salt segment")
	}

	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, params, fmt.Errorf("malformed digest segment")
	}

	return salt, key, params, nil
}
