package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "notesu/internal/errors"
)

func TestDuplicateUserError(t *testing.T) {
	tests := []struct {
		name          string
		usernameTaken bool
		hasEmail      bool
		want          error
	}{
		{
			// A concurrent signup with the same username and an email must not
			// be misreported as an email conflict.
			name:          "username taken wins over email presence",
			usernameTaken: true,
			hasEmail:      true,
			want:          apperrors.ErrDuplicateUsername,
		},
		{
			name:          "email conflict when username is free",
			usernameTaken: false,
			hasEmail:      true,
			want:          apperrors.ErrDuplicateEmail,
		},
		{
			name:          "username is the only unique column without email",
			usernameTaken: false,
			hasEmail:      false,
			want:          apperrors.ErrDuplicateUsername,
		},
		{
			name:          "username taken without email",
			usernameTaken: true,
			hasEmail:      false,
			want:          apperrors.ErrDuplicateUsername,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, duplicateUserError(tt.usernameTaken, tt.hasEmail), tt.want)
		})
	}
}
