// Package validate wraps the struct validator used by the REST
// handlers.
package validate

import "github.com/go-playground/validator/v10"

var v = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a struct's `validate` tags.
func Struct(s interface{}) error {
	return v.Struct(s)
}
