// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package validation provides struct validation using go-playground/validator
// v10 through a thread-safe singleton instance.
//
// Example usage:
//
//	type InteractionRequest struct {
//	    ArticleID string  `validate:"required,max=64"`
//	    Type      string  `validate:"required,oneof=OPEN LIKE DISLIKE SAVE HIDE"`
//	    Value     float64 `validate:"omitempty,min=0"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil { ... }
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// Error returns a human-readable message.
func (e *ValidationError) Error() string {
	return e.Message
}

// RequestValidationError aggregates validation failures for one payload.
type RequestValidationError struct {
	Errors []ValidationError
}

// Error joins all field messages.
func (ve *RequestValidationError) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// instance returns the singleton validator, creating it on first use.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct per its `validate` tags. Returns a
// *RequestValidationError on failure, nil on success.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return &RequestValidationError{Errors: []ValidationError{{
			Message: "invalid validation target",
		}}}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Errors: []ValidationError{{
			Message: err.Error(),
		}}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe),
		})
	}
	return &RequestValidationError{Errors: out}
}

// message builds a readable message for one field error.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
