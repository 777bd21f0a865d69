package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/netpong/internal/core"
	"github.com/vovakirdan/netpong/internal/game"
)

// MaxNameLength bounds player names in join requests. It matches the max
// tag on JoinGame.Name.
const MaxNameLength = 24

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]validator.Func{
		"finite": func(fl validator.FieldLevel) bool {
			return core.Finite(fl.Field().Float())
		},
		"mode": func(fl validator.FieldLevel) bool {
			return game.Mode(fl.Field().String()).Valid()
		},
		"status": func(fl validator.FieldLevel) bool {
			return game.Status(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("protocol: register %s: %v", tag, err))
		}
	}
	return v
}

// Validate checks the fields of an inbound message against its validate
// tags. Failures wrap ErrMalformed so callers can treat every one as a
// protocol error.
func Validate(m Message) error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		return fmt.Errorf("%w: %s failed %s", ErrMalformed, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
