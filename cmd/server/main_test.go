package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padelhub/padelhub/internal/config"
	"github.com/padelhub/padelhub/internal/middleware"
)

// run executes the command tree with the given environment and arguments.
func run(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"STORE", "DATABASE_URL", "JWT_SECRET", "SNAPSHOT_PATH", "LOG_LEVEL"} {
		t.Setenv(key, env[key])
	}
	cmd := root()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToken_NeedsOnlyTheSecret(t *testing.T) {
	// STORE defaults to postgres and DATABASE_URL is empty.
	out, err := run(t, map[string]string{"JWT_SECRET": "cli-secret"}, "token", "--player", "3", "--role", "admin")
	require.NoError(t, err)

	var claims middleware.Claims
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), &claims, func(*jwt.Token) (any, error) {
		return []byte("cli-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "3", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestToken_Rejections(t *testing.T) {
	_, err := run(t, map[string]string{}, "token", "--player", "3")
	assert.ErrorIs(t, err, config.ErrMissingConfig)

	_, err = run(t, map[string]string{"JWT_SECRET": "cli-secret"}, "token")
	assert.ErrorContains(t, err, "--player")
}

func TestStoreCommands_StillValidate(t *testing.T) {
	env := map[string]string{"JWT_SECRET": "cli-secret"}

	_, err := run(t, env, "serve")
	assert.ErrorIs(t, err, config.ErrMissingConfig)

	_, err = run(t, env)
	assert.ErrorIs(t, err, config.ErrMissingConfig)

	_, err = run(t, env, "migrate")
	assert.ErrorIs(t, err, config.ErrMissingConfig)

	_, err = run(t, env, "seed", "--file", "does-not-matter.json")
	assert.ErrorIs(t, err, config.ErrMissingConfig)
}

func TestRoot_RejectsBadLogLevel(t *testing.T) {
	_, err := run(t, map[string]string{"JWT_SECRET": "cli-secret", "LOG_LEVEL": "loud"}, "token", "--player", "1")
	assert.Error(t, err)
}
