// Package validation validates request payloads with go-playground/validator
// and reports failures as a field -> messages map.
//
// Custom tags:
//   - notfuture: integer year not after the current year
//   - safetext: no '<', '>' or "script"
//   - trimmedmin=N: at least N characters after trimming whitespace
//   - username: letters, digits and @/./+/-/_ only
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// CurrentYear returns the year used by the notfuture rule. Tests may replace it.
var CurrentYear = func() int { return time.Now().Year() }

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		mustRegister("notfuture", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() <= int64(CurrentYear())
		})
		mustRegister("safetext", func(fl validator.FieldLevel) bool {
			return IsSafeText(fl.Field().String())
		})
		mustRegister("trimmedmin", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
		})
		mustRegister("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})

	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// IsSafeText reports whether s is free of markup and script fragments.
func IsSafeText(s string) bool {
	if strings.ContainsAny(s, "<>") {
		return false
	}
	return !strings.Contains(strings.ToLower(s), "script")
}

// Messages overrides the default wording for a field and rule, keyed by
// "<json field>.<tag>", e.g. "title.trimmedmin".
type Messages map[string]string

// Validate checks s against its `validate` tags. It returns nil or *Errors.
func Validate(s any) error {
	return ValidateWith(s, nil)
}

// ValidateWith is Validate with per-field wording from messages.
func ValidateWith(s any, messages Messages) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := New()
	for _, fe := range fieldErrs {
		if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
			out.Add(fe.Field(), msg)
			continue
		}
		out.Add(fe.Field(), Message(fe))
	}
	return out
}

// Message renders a validator.FieldError in the API's wording.
func Message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_without", "notblank":
		return "This field is required."
	case "max", "lte":
		if isString {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min", "gte", "trimmedmin":
		if isString {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	case "notfuture":
		return fmt.Sprintf("Publication year cannot be in the future. Current year is %d.", CurrentYear())
	case "safetext":
		return "This field contains invalid characters."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "eqfield":
		return fmt.Sprintf("This field must match %s.", fe.Param())
	}
	return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
}
