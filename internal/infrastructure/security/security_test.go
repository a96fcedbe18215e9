package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
)

func TestGenerateElementID(t *testing.T) {
	a := GenerateElementID()
	b := GenerateElementID()
	assert.True(t, element.IsValidID(a), a)
	assert.NotEqual(t, a, b)
	assert.Len(t, GenerateULID(), 26)
}

func TestAuthorTokenRoundTrip(t *testing.T) {
	author := &user.User{ID: "u1", Name: "Editor", Roles: []string{user.RoleEditor}}
	token, err := GenerateAuthorToken(author, "secret", time.Hour)
	require.NoError(t, err)

	got, err := ValidateAuthorToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, author, got)
	assert.True(t, got.CanEdit())
}

func TestAuthorTokenRejected(t *testing.T) {
	author := &user.User{ID: "u1", Name: "Editor"}

	token, err := GenerateAuthorToken(author, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ValidateAuthorToken(token, "other")
	assert.Error(t, err)

	expired, err := GenerateAuthorToken(author, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateAuthorToken(expired, "secret")
	assert.Error(t, err)

	_, err = ValidateAuthorToken("not-a-token", "secret")
	assert.Error(t, err)
}
