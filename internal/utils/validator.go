// internal/utils/validator.go
package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cardswap/cardswap-backend/internal/models"
)

var (
	validate        = newValidator()
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(f.Name)
		}
		return name
	})
	must(v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("card_condition", func(fl validator.FieldLevel) bool {
		return models.Condition(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("match_status", func(fl validator.FieldLevel) bool {
		status := models.MatchStatus(fl.Field().String())
		for _, s := range models.AllMatchStatuses {
			if s == status {
				return true
			}
		}
		return false
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// validationMessages are printf formats taking the field name and the tag param.
var validationMessages = map[string]string{
	"required":       "%s is required",
	"email":          "%s must be a valid email address",
	"min":            "%s must be at least %s",
	"gte":            "%s must be at least %s",
	"max":            "%s must be at most %s",
	"lte":            "%s must be at most %s",
	"gt":             "%s must be greater than %s",
	"oneof":          "%s must be one of: %s",
	"required_if":    "%s is required when %s",
	"card_condition": "%s must be one of NM, LP, MP, HP, DMG",
	"match_status":   "%s is not a known match status",
	"username":       "%s must be 3-50 letters, digits or underscores",
}

func GetValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, ValidationError{
			Field:   e.Field(),
			Tag:     e.Tag(),
			Message: validationMessage(e),
		})
	}
	return out
}

func validationMessage(e validator.FieldError) string {
	format, ok := validationMessages[e.Tag()]
	if !ok {
		return e.Field() + " is invalid"
	}
	if strings.Count(format, "%s") == 1 {
		return fmt.Sprintf(format, e.Field())
	}
	return fmt.Sprintf(format, e.Field(), e.Param())
}
