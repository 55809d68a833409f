package mailinglist

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/rivo/uniseg"
)

// maxSubscriberGraphemes bounds subscriber name and email length
const maxSubscriberGraphemes = 256

// forbiddenNameChars would let a subscriber name break out of email and HTML
// contexts it gets interpolated into
const forbiddenNameChars = `/()"<>\{}`

// SubscriberPayload is the raw, unvalidated subscribe request body
type SubscriberPayload struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r SubscriberPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Required,
			validation.By(validateNotBlank),
			validation.By(validateMaxGraphemes(maxSubscriberGraphemes)),
			validation.By(validateNoForbiddenChars),
		),
		validation.Field(
			&r.Email,
			validation.Required,
			validation.By(validateMaxGraphemes(maxSubscriberGraphemes)),
			is.Email,
		),
	)
}

// ParseSubscriber validates the payload and returns a Subscriber value ready
// for insertion. Validation is pure CPU work and safe to run concurrently
// with token generation.
func ParseSubscriber(payload SubscriberPayload) (*Subscriber, error) {
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid subscriber details")
	}

	return &Subscriber{
		Name:   payload.Name,
		Email:  payload.Email,
		Status: SubscriberPending,
	}, nil
}

func validateNotBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
}

func validateNoForbiddenChars(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, forbiddenNameChars) {
		return fmt.Errorf("contains forbidden characters")
	}
	return nil
}

func validateMaxGraphemes(max int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if uniseg.GraphemeClusterCount(s) > max {
			return fmt.Errorf("must be at most %d characters", max)
		}
		return nil
	}
}
