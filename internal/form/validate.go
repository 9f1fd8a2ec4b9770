// Package form validates user input before it reaches the workspace and computes
// invoice totals while a draft is edited.
package form

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldError is one failed constraint, addressed by its JSON path (e.g. items[0].quantity).
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation error"
	}
	return "validation error: " + v.Errors[0].Field + ": " + v.Errors[0].Message
}

// Field returns the message reported for path, if any.
func (v *ValidationErrors) Field(path string) (string, bool) {
	for _, e := range v.Errors {
		if e.Field == path {
			return e.Message, true
		}
	}
	return "", false
}

var (
	validate   = newValidator()
	indexRe    = regexp.MustCompile(`\[\d+\]`)
	errUnknown = errors.New("form: unexpected validation failure")
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("unique_ids", uniqueItemIDs)
	return v
}

// uniqueItemIDs rejects two items carrying the same non-blank id.
func uniqueItemIDs(fl validator.FieldLevel) bool {
	items, ok := fl.Field().Interface().([]ItemDraft)
	if !ok {
		return false
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}

// check runs the struct tags of s and translates failures through messages,
// keyed by "<path without indices>|<tag>".
func check(s any, messages map[string]string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errUnknown
	}

	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		message, ok := messages[indexRe.ReplaceAllString(path, "[]")+"|"+fe.Tag()]
		if !ok {
			message = "Invalid value"
		}
		out.Errors = append(out.Errors, FieldError{Field: path, Code: fe.Tag(), Message: message})
	}
	return out
}
