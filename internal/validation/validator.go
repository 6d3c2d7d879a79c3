// Package validation holds the shared struct validator used for plans,
// review reports and settings.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	stepNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// StepNamePattern reports whether name matches the step_name tag. The tag
// guards names that come from settings; plans accept any non-empty name.
func StepNamePattern(name string) bool {
	return stepNamePattern.MatchString(name)
}

// Instance returns the process-wide validator with custom tags registered.
func Instance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("step_name", func(fl validator.FieldLevel) bool {
			return stepNamePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Struct validates s and converts the first failure into a ValidationError.
// root is used as the field name when the failure is not field-specific.
func Struct(root string, s any) error {
	if err := Instance().Struct(s); err != nil {
		return Convert(root, err)
	}
	return nil
}

// Convert maps validator failures onto the typed ValidationError.
func Convert(root string, err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := fieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return ilerrors.NewValidationError(field, msg, err)
	}

	return ilerrors.NewValidationError(root, err.Error(), err)
}

func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, toSnake(part))
	}
	return strings.Join(lowered, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
