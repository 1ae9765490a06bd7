package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageFormatting(t *testing.T) {
	base := New("TEST_ERROR", "something failed", http.StatusBadRequest)
	require.Equal(t, "something failed", base.Error())

	wrapped := base.WithInternal(errors.New("db offline"))
	require.Equal(t, "something failed: db offline", wrapped.Error())
	require.Equal(t, base.Code, wrapped.Code)
	require.Nil(t, base.Internal, "WithInternal must not mutate the original")
}

func TestFromErrorUnwrapsAppError(t *testing.T) {
	appErr := ErrNotEnoughPermissions.WithInternal(errors.New("role check"))

	converted := FromError(appErr)
	require.Equal(t, ErrNotEnoughPermissions.Code, converted.Code)
	require.Equal(t, http.StatusForbidden, converted.StatusCode)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	converted := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, converted.Code)
	require.Equal(t, http.StatusInternalServerError, converted.StatusCode)
	require.EqualError(t, converted.Internal, "boom")
}

func TestTaxonomyStatusCodes(t *testing.T) {
	require.Equal(t, http.StatusForbidden, ErrCredentialNotFound.StatusCode)
	require.Equal(t, http.StatusForbidden, ErrCredentialInvalid.StatusCode)
	require.Equal(t, http.StatusNotFound, ErrInvalidInvitationCode.StatusCode)
	require.Equal(t, http.StatusConflict, ErrAlreadyConnected.StatusCode)
}

func TestWithMessageKeepsCodeAndStatus(t *testing.T) {
	specific := ErrWrongCredentials.WithMessage("old password does not match")
	require.Equal(t, ErrWrongCredentials.Code, specific.Code)
	require.Equal(t, ErrWrongCredentials.StatusCode, specific.StatusCode)
	require.Equal(t, "old password does not match", specific.Message)
}
