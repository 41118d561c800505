package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateCreate trims the request in place and maps validator failures to errs.ValidationError.
func validateCreate(v *validator.Validate, req *dto.CreateStoreRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Domain = strings.TrimSuffix(strings.TrimSpace(req.Domain), ".")
	req.Subdomain = strings.TrimSpace(req.Subdomain)
	req.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	req.Language = strings.TrimSpace(req.Language)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("can't validate request, %v", err)
	}
	validationErr := errs.ValidationError{}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			validationErr.Missing = append(validationErr.Missing, fe.Field())
			continue
		}
		if validationErr.Invalid == nil {
			validationErr.Invalid = make(map[string]string)
		}
		validationErr.Invalid[fe.Field()] = reason(fe)
	}
	return validationErr
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "fqdn":
		return "must be a fully qualified domain name"
	case "iso3166_1_alpha2":
		return "must be an ISO 3166-1 alpha-2 country code"
	case "iso4217":
		return "must be an ISO 4217 currency code"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
