// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "fmt"

// ValidationError reports bad caller input on a single field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid is shorthand for a ValidationError without a cause.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
