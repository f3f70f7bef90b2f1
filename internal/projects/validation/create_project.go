package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so the error map matches the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateProjectInput checks a creation payload. It returns a map from json field
// name to message and whether the payload is valid.
func ValidateProjectInput(req domain.CreateProjectRequest) (map[string]string, bool) {
	req.Name = strings.TrimSpace(req.Name)

	errs := map[string]string{}
	err := validate.Struct(req)
	if err == nil {
		return errs, true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["body"] = err.Error()
		return errs, false
	}
	for _, fe := range verrs {
		errs[fe.Field()] = message(fe)
	}
	return errs, false
}

func message(fe validator.FieldError) string {
	field := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " field is required"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}
