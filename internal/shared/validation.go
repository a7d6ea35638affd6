package shared

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationFromStruct converts a validator error into an ErrValidation naming the first bad field.
func ValidationFromStruct(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return Validation(lowerFirst(fe.Field()) + " failed " + fe.Tag())
	}
	return Validation(err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
