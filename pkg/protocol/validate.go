package protocol

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Validator is implemented by payloads with rules beyond their struct tags.
type Validator interface {
	Validate() error
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(wallEndpoints, WallAddRequest{})
	return v
}

func wallEndpoints(sl validator.StructLevel) {
	w := sl.Current().Interface().(WallAddRequest)
	if w.Coords[0] == w.Coords[2] && w.Coords[1] == w.Coords[3] {
		sl.ReportError(w.Coords, "coords", "Coords", "distinct_endpoints", "")
	}
}

// Check validates a decoded payload: its `validate` struct tags first, then
// its Validate method when it has one. Non-struct payloads only get the
// latter.
func Check(p any) error {
	if err := validate.Struct(p); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return err
		}
	}
	if v, ok := p.(Validator); ok {
		return v.Validate()
	}
	return nil
}
