package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUserNormalizesFields(t *testing.T) {
	user, err := NewUser("  user_abc ", " Owner@Example.com ")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "user_abc", user.UserID)
	require.Equal(t, "owner@example.com", user.Email)
}

func TestNewUserRejectsInvalidIdentity(t *testing.T) {
	_, blankErr := NewUser("   ", "")
	require.ErrorIs(t, blankErr, ErrInvalidUserID)

	_, longErr := NewUser(strings.Repeat("a", userIDMaxLength+1), "")
	require.ErrorIs(t, longErr, ErrInvalidUserID)
}

func TestNewUserDropsOversizedEmail(t *testing.T) {
	user, err := NewUser("user_abc", strings.Repeat("a", userEmailMaxLength)+"@example.com")
	require.NoError(t, err)
	require.Empty(t, user.Email)
}
