// Package validate wraps go-playground/validator and converts its errors
// into apperr validation details.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"apicourse/internal/apperr"
)

var (
	once     sync.Once
	instance *validator.Validate

	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	slugRe     = regexp.MustCompile(`^[a-z0-9-]+$`)
	zipRe      = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	orderIDRe  = regexp.MustCompile(`^ORD[0-9]+$`)
)

// Engine returns the shared validator with the custom tags registered.
func Engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		mustRegister(v, "username", matcher(usernameRe))
		mustRegister(v, "slug", matcher(slugRe))
		mustRegister(v, "zipcode", matcher(zipRe))
		mustRegister(v, "orderid", matcher(orderIDRe))
		mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.DateOnly, fl.Field().String())
			return err == nil
		})
		mustRegister(v, "future", func(fl validator.FieldLevel) bool {
			t, ok := fl.Field().Interface().(time.Time)
			return ok && t.After(time.Now())
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func matcher(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// fieldName reports the wire name of a field: json, then query, params, form.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "query", "params", "form"} {
		name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Struct validates s and returns an *apperr.Error listing every failure.
func Struct(s any) error {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}
	return convert(err, "")
}

// Var validates a single value against tag, reporting failures under field.
func Var(field string, value any, tag string) error {
	err := Engine().Var(value, tag)
	if err == nil {
		return nil
	}
	return convert(err, field)
}

func convert(err error, field string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make([]apperr.Detail, 0, len(verrs))
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = namespace(fe.Namespace())
		}
		details = append(details, apperr.Detail{
			Field:   name,
			Message: message(fe),
			Code:    fe.Tag(),
			Value:   fe.Value(),
		})
	}
	return apperr.Validation(details...)
}

// namespace drops the root struct name: "createUser.address.zip" -> "address.zip".
func namespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "field is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		if isText(fe) {
			return fmt.Sprintf("must be at least %s characters long", p)
		}
		return fmt.Sprintf("must be at least %s", p)
	case "max":
		if isText(fe) {
			return fmt.Sprintf("must be at most %s characters long", p)
		}
		return fmt.Sprintf("must be at most %s", p)
	case "len":
		return fmt.Sprintf("must have length %s", p)
	case "gt":
		return fmt.Sprintf("must be greater than %s", p)
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", p)
	case "lt":
		return fmt.Sprintf("must be less than %s", p)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", p)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(p), ", "))
	case "username":
		return "may only contain letters, digits and underscores"
	case "slug":
		return "may only contain lowercase letters, digits and hyphens"
	case "zipcode":
		return "must be a 5 digit zip code, optionally followed by -4 digits"
	case "orderid":
		return "must look like ORD followed by digits"
	case "isodate":
		return "must be a valid date in YYYY-MM-DD format"
	case "future":
		return "must be in the future"
	case "dive", "unique":
		return "contains invalid items"
	}
	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}

func isText(fe validator.FieldError) bool {
	k := fe.Kind()
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}
