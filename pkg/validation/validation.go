// Package validation wraps validator/v10 with the rules shared by the gin
// binding engine and the service layer.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Register adds the custom rules to v. Call it on gin's binding engine.
func Register(v *validator.Validate) error {
	return v.RegisterValidation("notblank", validators.NotBlank)
}

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		instance.SetTagName("validate")
		_ = Register(instance)
	})
	return instance
}

// Struct validates s and returns a readable message for the first failures.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	return errors.New(Describe(err))
}

// Describe turns validator errors into "field rule" phrases.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required", "notblank":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
