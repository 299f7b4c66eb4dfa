package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"unihub/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report json names so messages match request bodies
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("source_type", func(fl validator.FieldLevel) bool {
		return models.SourceType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("leaderboard_scope", func(fl validator.FieldLevel) bool {
		_, err := models.ParseLeaderboardScope(fl.Field().String())
		return err == nil
	})

	return v
}

// FieldError describes one failed constraint
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error is returned by ValidateStruct when constraints fail
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation: %s", f.Field, f.Rule))
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if s == nil {
		return nil
	}

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return errors.New("validator: nil pointer")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validator: expected a struct, got %T", s)
	}

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := &Error{Fields: make([]FieldError, 0, len(ve))}
		for _, e := range ve {
			out.Fields = append(out.Fields, FieldError{Field: e.Field(), Rule: e.Tag()})
		}
		return out
	}
	return fmt.Errorf("validation failed: %w", err)
}
