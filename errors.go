package mailinglist

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ErrNoEmptyString is the error returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be an empty string")

// ErrPasswordInvalid covers every verification failure: wrong password,
// unparsable stored hash, mismatched parameters. Callers never learn which.
var ErrPasswordInvalid = errors.New("password verification failed")

// ErrUsernameNotFound means the username has no row in the users table.
// It is only ever returned after a full hash verification has run.
var ErrUsernameNotFound = errors.New("username not found")

// ErrUsernameTooLong rejects usernames over 256 grapheme clusters
var ErrUsernameTooLong = errors.New("username exceeds 256 characters")

// ErrPasswordTooLong rejects passwords over 256 grapheme clusters
var ErrPasswordTooLong = errors.New("password exceeds 256 characters")

// ErrMissingAuthHeader is returned when the Authorization header is absent
var ErrMissingAuthHeader = errors.New("missing 'Authorization' header")

// ErrWrongAuthScheme is returned for a non Basic authorization scheme
var ErrWrongAuthScheme = errors.New("expected 'Basic' authorization scheme")

// ErrInvalidAuthEncoding covers undecodable base64 or non UTF-8 credentials
var ErrInvalidAuthEncoding = errors.New("unable to decode authorization header")

// ErrMissingColon means the decoded credentials had no username:password split
var ErrMissingColon = errors.New("missing colon separator in credentials")

// ErrTokenInvalid rejects malformed subscription token candidates
var ErrTokenInvalid = errors.New("invalid subscription token")

// ErrUnauthorized is the uniform failure for well-shaped tokens that resolve
// to nothing and for requests without a valid session
var ErrUnauthorized = errors.New("unauthorized")

// ErrSessionNotFound means the session id has no live record in the store
var ErrSessionNotFound = errors.New("session not found")

// ClientErrorKind is the closed set of client-visible failure shapes. Every
// internal error maps to exactly one kind; duplicates never surface at all.
type ClientErrorKind string

const (
	ClientInvalidInput       ClientErrorKind = "invalid_input"
	ClientInvalidCredentials ClientErrorKind = "invalid_credentials"
	ClientUnauthorized       ClientErrorKind = "unauthorized"
	ClientServiceError       ClientErrorKind = "service_error"
)

// ClientError is what the transport layer is allowed to show
type ClientError struct {
	Kind    ClientErrorKind `json:"kind"`
	Message string          `json:"message"`
}

func (c ClientError) Error() string {
	return c.Message
}

// MapClientError converts any internal error into a transport status code and
// a ClientError. The mapping is total: unknown errors become service errors.
// Authentication failures collapse into one uniform message regardless of
// internal cause.
func MapClientError(err error) (int, ClientError) {
	switch {
	case err == nil:
		return fiber.StatusOK, ClientError{}
	case errors.Is(err, ErrPasswordInvalid),
		errors.Is(err, ErrUsernameNotFound):
		return fiber.StatusUnauthorized, ClientError{
			Kind:    ClientInvalidCredentials,
			Message: "invalid username or password",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrSessionNotFound):
		return fiber.StatusUnauthorized, ClientError{
			Kind:    ClientUnauthorized,
			Message: "unauthorized access",
		}
	case errors.Is(err, ErrMissingAuthHeader),
		errors.Is(err, ErrWrongAuthScheme),
		errors.Is(err, ErrInvalidAuthEncoding),
		errors.Is(err, ErrMissingColon),
		errors.Is(err, ErrUsernameTooLong),
		errors.Is(err, ErrPasswordTooLong),
		errors.Is(err, ErrTokenInvalid):
		return fiber.StatusBadRequest, ClientError{
			Kind:    ClientInvalidInput,
			Message: err.Error(),
		}
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return fiber.StatusBadRequest, ClientError{
				Kind:    ClientInvalidInput,
				Message: rich.Message,
			}
		case goerrors.CategoryAuth:
			return fiber.StatusUnauthorized, ClientError{
				Kind:    ClientUnauthorized,
				Message: "unauthorized access",
			}
		}
	}

	return fiber.StatusInternalServerError, ClientError{
		Kind:    ClientServiceError,
		Message: "service error",
	}
}
