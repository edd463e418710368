package api

import (
	"fmt"
	"strings"
)

// Every failure leaving the client is one of the four kinds below, each
// carrying a message that can be shown to the user as-is.

// NetworkError means no response was received at all.
type NetworkError struct {
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return "the request took too long (timeout)"
	}
	return "could not connect to the server"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means the server rejected the credential. The session has
// already been cleared by the time the caller sees it.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "your session has expired, please log in again"
}

// FieldError is one field-level problem from the server's validation layer.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries the server's field-level problems joined into one
// readable message.
type ValidationError struct {
	Status int
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		field := f.Field
		if field == "" {
			field = "field"
		}
		parts = append(parts, field+": "+f.Message)
	}
	return strings.Join(parts, " | ")
}

// ServerError covers every other error response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Error %d", e.Status)
}
