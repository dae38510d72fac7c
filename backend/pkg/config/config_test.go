package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "social-network/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DEFAULT_SITE", "")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "default", cfg.DefaultSite)
	assert.Equal(t, "social", cfg.EventSubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Neo4jRequiresPassword(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverNeo4j)
	t.Setenv("NEO4J_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "NEO4J_PASSWORD")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			StoreDriver:        StoreDriverMemory,
			DefaultSite:        "default",
			EventSubjectPrefix: "social",
			ShutdownTimeout:    time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "memory ok", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: true},
		{name: "neo4j with credentials", mutate: func(c *Config) {
			c.StoreDriver = StoreDriverNeo4j
			c.Neo4jURI = "bolt://db:7687"
			c.Neo4jUser = "neo4j"
			c.Neo4jPassword = "secret"
		}},
		{name: "empty site", mutate: func(c *Config) { c.DefaultSite = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
