package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/server"
)

func TestLoadProfile_EnvOverrides(t *testing.T) {
	t.Setenv("GRIDIRON_DRIVER", "postgres")
	t.Setenv("GRIDIRON_STATS_DSN", "/srv/nfl/pbp_db")
	t.Setenv("GRIDIRON_ROUTING_MODE", "web")
	t.Setenv("TOGETHER_API_KEY", "sk-test")

	p := loadProfile()
	assert.Equal(t, "postgres", p.Driver)
	assert.Equal(t, "/srv/nfl/pbp_db", p.StatsDSN)
	assert.Equal(t, "web", p.RoutingMode)
	assert.Equal(t, "sk-test", p.LLMAPIKey)
	assert.True(t, p.IsAIEnabled())
}

func TestTokenCommand(t *testing.T) {
	instanceProfile = &profile.Profile{JWTSecret: "s3cret"}
	t.Cleanup(func() { instanceProfile = nil })

	cmd := newTokenCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"alice"})
	require.NoError(t, cmd.Execute())

	claims, err := server.ParseToken([]byte("s3cret"), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	instanceProfile = &profile.Profile{}
	t.Cleanup(func() { instanceProfile = nil })

	cmd := newTokenCommand()
	cmd.SetArgs([]string{"alice"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "GRIDIRON_JWT_SECRET")
}

func TestNewApp_RequiresLLM(t *testing.T) {
	_, err := newApp(t.Context(), &profile.Profile{LLMProvider: "together"}, nil)
	assert.ErrorIs(t, err, errNoLLM)
}
