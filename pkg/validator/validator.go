package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
)

// Validator checks `validate` struct tags and reports failures as
// ValidationError AppErrors.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// registration only fails on empty tags or nil funcs
	_ = v.RegisterValidation("shift_type", func(fl validator.FieldLevel) bool {
		return model.ShiftType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= int64(time.Sunday) && d <= int64(time.Saturday)
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).IsValid()
	})

	return &Validator{v: v}
}

func (v *Validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidation(err.Error(), err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperrors.NewValidation(strings.Join(msgs, "; "), err)
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "weekday":
		return fmt.Sprintf("%s must be a weekday number between 0 (Sunday) and 6 (Saturday)", field)
	case "shift_type":
		return fmt.Sprintf("%s must be one of MORNING, AFTERNOON, EVENING, FULL_DAY", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
