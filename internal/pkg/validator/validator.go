package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxContentLength = 500

type sendMessageRequest struct {
	ChatID  string `validate:"required"`
	From    string `validate:"required"`
	Content string `validate:"required,max=500"`
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateSendMessage checks an outgoing message. Content is trimmed before
// the checks, so whitespace-only text counts as empty.
func (v *Validator) ValidateSendMessage(chatID, from, content string) error {
	req := sendMessageRequest{
		ChatID:  strings.TrimSpace(chatID),
		From:    strings.TrimSpace(from),
		Content: strings.TrimSpace(content),
	}

	if err := v.validate.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return describe(errs[0])
		}
		return fmt.Errorf("message validation failed: %v", err)
	}

	return nil
}

func describe(fe validator.FieldError) error {
	switch {
	case fe.Field() == "Content" && fe.Tag() == "required":
		return fmt.Errorf("content cannot be empty")
	case fe.Field() == "Content" && fe.Tag() == "max":
		return fmt.Errorf("content exceeds maximum length of %d characters", MaxContentLength)
	case fe.Field() == "ChatID":
		return fmt.Errorf("chat id is required")
	case fe.Field() == "From":
		return fmt.Errorf("sender profile id is required")
	default:
		return fmt.Errorf("field %s failed on '%s'", fe.Field(), fe.Tag())
	}
}
