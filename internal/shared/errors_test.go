package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenialMatchesErrDenied(t *testing.T) {
	assert.True(t, errors.Is(ErrForbidden, ErrDenied))
	assert.True(t, errors.Is(ErrAlreadyExists, ErrDenied))
	assert.True(t, errors.Is(&Denial{Reason: "custom"}, ErrDenied))
	assert.False(t, errors.Is(ErrForbidden, ErrAlreadyExists))
	assert.Equal(t, "denied: already exists", ErrAlreadyExists.Error())
}

func TestUnavailableWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable(cause)

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, Unavailable(err))
	assert.Nil(t, Unavailable(nil))
}

func TestUserSafeMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"invalid credential", ErrInvalidCredentials, "invalid credential"},
		{"invalid token", ErrInvalidToken, "invalid credential"},
		{"forbidden", ErrForbidden, "forbidden"},
		{"exists", ErrAlreadyExists, "already exists"},
		{"not found", ErrNotFound, "not found"},
		{"unavailable", Unavailable(errors.New("boom")), "service unavailable, try again later"},
		{"validation", Validation("email is required"), "validation failed: email is required"},
		{"unknown", errors.New("secret detail"), "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UserSafeMessage(tc.err))
		})
	}
}
