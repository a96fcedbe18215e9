package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/security"
	"github.com/AtRiskMedia/tractstack-elements/pkg/config"
)

func TestTokenCommand(t *testing.T) {
	previous := config.JWTSecret
	config.JWTSecret = "cli-secret"
	t.Cleanup(func() { config.JWTSecret = previous })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "u7", "Casey", "--role", "admin", "--ttl", "1h"})
	require.NoError(t, rootCmd.Execute())

	author, err := security.ValidateAuthorToken(strings.TrimSpace(out.String()), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, "u7", author.ID)
	assert.Equal(t, "Casey", author.Name)
	assert.Equal(t, []string{"admin"}, author.Roles)
	assert.True(t, author.CanEdit())
}

func TestResolveRequiresPath(t *testing.T) {
	rootCmd.SetArgs([]string{"resolve"})
	assert.Error(t, rootCmd.Execute())
}
