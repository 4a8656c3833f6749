// Package apperr defines the error taxonomy shared by the engine, the
// service layer and the HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an error for the HTTP layer and for retry decisions.
type Kind string

const (
	KindUnknown             Kind = ""
	KindTemplateNotFound    Kind = "template_not_found"
	KindTemplateFormat      Kind = "template_format"
	KindTemplateSyntax      Kind = "template_syntax"
	KindDataIntegrity       Kind = "data_integrity"
	KindUnresolvedVariables Kind = "unresolved_variables"
	KindStorage             Kind = "storage"
	KindDocumentNotFound    Kind = "document_not_found"
	KindClientNotFound      Kind = "client_not_found"
	KindInvalidRequest      Kind = "invalid_request"
)

// TemplateNotFoundError is returned when a template id does not exist.
type TemplateNotFoundError struct {
	ID string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %s not found", e.ID)
}

// TemplateFormatError means the uploaded container is not a usable package.
// The file has to be uploaded again; retrying the same bytes cannot succeed.
type TemplateFormatError struct {
	Reason string
	Entry  string
	Err    error
}

func (e *TemplateFormatError) Error() string {
	msg := "invalid template package: " + e.Reason
	if e.Entry != "" {
		msg += " (" + e.Entry + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateFormatError) Unwrap() error { return e.Err }

// TemplateSyntaxError carries the template fragment that could not be parsed.
type TemplateSyntaxError struct {
	Fragment string
	Reason   string
	Offset   int
}

func (e *TemplateSyntaxError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("template syntax error in %q at %d: %s", e.Fragment, e.Offset, e.Reason)
	}
	return fmt.Sprintf("template syntax error in %q: %s", e.Fragment, e.Reason)
}

// DataIntegrityError reports policy data that does not match the shape its type declares.
type DataIntegrityError struct {
	PolicyID string
	Field    string
	Expected string
	Err      error
}

func (e *DataIntegrityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "policy %s: invalid %s", e.PolicyID, e.Field)
	if e.Expected != "" {
		fmt.Fprintf(&b, ", expected %s", e.Expected)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

// UnresolvedVariableError lists every required variable that had no value.
type UnresolvedVariableError struct {
	Names []string
}

func (e *UnresolvedVariableError) Error() string {
	return "unresolved required variables: " + strings.Join(e.Names, ", ")
}

// StorageError wraps a failed blob or record read/write.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type DocumentNotFoundError struct {
	ID string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document %s not found", e.ID)
}

type ClientNotFoundError struct {
	ID string
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("client %s not found", e.ID)
}

// InvalidRequestError rejects caller input before any work is done.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// KindOf returns the taxonomy entry of err, looking through wrapping.
func KindOf(err error) Kind {
	var (
		notFound   *TemplateNotFoundError
		format     *TemplateFormatError
		syntax     *TemplateSyntaxError
		integrity  *DataIntegrityError
		unresolved *UnresolvedVariableError
		storage    *StorageError
		docMissing *DocumentNotFoundError
		clMissing  *ClientNotFoundError
		invalid    *InvalidRequestError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &notFound):
		return KindTemplateNotFound
	case errors.As(err, &format):
		return KindTemplateFormat
	case errors.As(err, &syntax):
		return KindTemplateSyntax
	case errors.As(err, &integrity):
		return KindDataIntegrity
	case errors.As(err, &unresolved):
		return KindUnresolvedVariables
	case errors.As(err, &docMissing):
		return KindDocumentNotFound
	case errors.As(err, &clMissing):
		return KindClientNotFound
	case errors.As(err, &invalid):
		return KindInvalidRequest
	case errors.As(err, &storage):
		return KindStorage
	}
	return KindUnknown
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindTemplateNotFound, KindDocumentNotFound, KindClientNotFound:
		return http.StatusNotFound
	case KindTemplateFormat, KindInvalidRequest:
		return http.StatusBadRequest
	case KindTemplateSyntax, KindDataIntegrity, KindUnresolvedVariables:
		return http.StatusUnprocessableEntity
	case KindStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the caller layer may retry the operation once.
func Retryable(err error) bool {
	return KindOf(err) == KindStorage
}
