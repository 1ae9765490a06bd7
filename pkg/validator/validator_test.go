package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type registrationPayload struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,max=64"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&registrationPayload{
		Username: "joe",
		Email:    "joe@example.com",
		Password: "123456",
	})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&registrationPayload{Email: "not-an-email", Password: "x"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)

	byField := map[string]ValidationError{}
	for _, f := range failures {
		byField[f.Field] = f
	}

	require.Equal(t, "required", byField["username"].Tag)
	require.Equal(t, "email", byField["email"].Tag)
	require.Equal(t, "min", byField["password"].Tag)
	require.Equal(t, "3", byField["password"].Param)
}
