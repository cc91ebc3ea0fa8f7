package client

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// errInvalidRequest covers both undecodable bodies and failed field rules.
var errInvalidRequest = errors.New("invalid request")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// bindRequest decodes the JSON body into dest and applies its validate tags.
// The returned error lists the offending JSON field names.
func bindRequest(c echo.Context, dest any) error {
	if err := c.Bind(dest); err != nil {
		return errInvalidRequest
	}
	if err := validate.Struct(dest); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fe.Field())
			}
			return &missingFieldsError{fields: fields}
		}
		return errInvalidRequest
	}
	return nil
}

type missingFieldsError struct {
	fields []string
}

func (e *missingFieldsError) Error() string {
	return "missing fields: " + strings.Join(e.fields, ", ")
}

func (e *missingFieldsError) Unwrap() error {
	return errInvalidRequest
}
