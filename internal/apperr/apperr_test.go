package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfLooksThroughWrapping(t *testing.T) {
	err := fmt.Errorf("render: %w", &TemplateSyntaxError{Fragment: "a ==", Reason: "missing operand"})
	require.Equal(t, KindTemplateSyntax, KindOf(err))
	require.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))

	var syn *TemplateSyntaxError
	require.True(t, errors.As(err, &syn))
	require.Equal(t, "a ==", syn.Fragment)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&TemplateNotFoundError{ID: "t1"}, http.StatusNotFound},
		{&TemplateFormatError{Reason: "not a zip"}, http.StatusBadRequest},
		{&DataIntegrityError{PolicyID: "p1", Field: "coverageDetails"}, http.StatusUnprocessableEntity},
		{&UnresolvedVariableError{Names: []string{"a"}}, http.StatusUnprocessableEntity},
		{&StorageError{Op: "get", Err: errors.New("boom")}, http.StatusServiceUnavailable},
		{&DocumentNotFoundError{ID: "d1"}, http.StatusNotFound},
		{&InvalidRequestError{Field: "name", Reason: "required"}, http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestRetryableOnlyForStorage(t *testing.T) {
	require.True(t, Retryable(fmt.Errorf("x: %w", &StorageError{Op: "put", Err: errors.New("timeout")})))
	require.False(t, Retryable(&TemplateFormatError{Reason: "bad"}))
	require.False(t, Retryable(nil))
}

func TestErrorMessagesCarryContext(t *testing.T) {
	require.Contains(t, (&DataIntegrityError{PolicyID: "pol-9", Field: "coverageDetails", Expected: "auto coverage object"}).Error(), "pol-9")
	require.Equal(t, "unresolved required variables: a, b", (&UnresolvedVariableError{Names: []string{"a", "b"}}).Error())
}
