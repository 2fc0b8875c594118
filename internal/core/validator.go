package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"myomesh/internal/types"
)

// Validator wraps go-playground/validator and maps failures to AppErrors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator that reports JSON field names.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s against its `validate` tags. The first failing
// field determines the error:
//
//   - required: validation_missing_required_field
//   - email:    validation_invalid_email
//   - anything else: validation_missing_required_field with the failed rule
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		if v.logger != nil {
			v.logger.Error("unexpected validation failure", "error", err)
		}
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return types.NewAppError(types.ErrCodeValidationMissingField,
			fmt.Sprintf("%s is required", field), nil).
			WithDetails(map[string]any{"field": field})
	case "email":
		return types.NewAppError(types.ErrCodeValidationInvalidEmail,
			fmt.Sprintf("%s must be a valid email address", field), nil).
			WithDetails(map[string]any{"field": field})
	default:
		return types.NewAppError(types.ErrCodeValidationMissingField,
			fmt.Sprintf("%s failed the %s rule", field, fe.Tag()), nil).
			WithDetails(map[string]any{"field": field, "rule": fe.Tag()})
	}
}
