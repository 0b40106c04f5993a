// Package validation runs struct tag validation and turns failures into
// apperr field details.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"classhub/internal/apperr"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:[0-5]\d$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	return v
}

// Struct validates s and returns an InvalidInput error listing every bad field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Server(err)
	}
	details := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperr.FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return apperr.InvalidInput(apperr.MsgInvalidData, details...)
}

// fieldPath drops the top level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func isText(fe validator.FieldError) bool {
	k := fe.Kind()
	return k == reflect.String
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "این فیلد الزامی است"
	case "email":
		return "ایمیل وارد شده معتبر نیست"
	case "min":
		if isText(fe) {
			return fmt.Sprintf("حداقل طول مجاز %s کاراکتر است", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("حداقل %s مورد لازم است", fe.Param())
		}
		return fmt.Sprintf("حداقل مقدار مجاز %s است", fe.Param())
	case "max":
		if isText(fe) {
			return fmt.Sprintf("حداکثر طول مجاز %s کاراکتر است", fe.Param())
		}
		return fmt.Sprintf("حداکثر مقدار مجاز %s است", fe.Param())
	case "gt":
		return fmt.Sprintf("مقدار باید بیشتر از %s باشد", fe.Param())
	case "gte":
		return fmt.Sprintf("مقدار باید حداقل %s باشد", fe.Param())
	case "lte":
		return fmt.Sprintf("مقدار باید حداکثر %s باشد", fe.Param())
	case "oneof":
		return fmt.Sprintf("مقدار باید یکی از این موارد باشد: %s", fe.Param())
	case "clock":
		return "فرمت زمان باید HH:MM:SS باشد"
	default:
		return "مقدار نامعتبر است"
	}
}
