package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yaml in sight

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.Owner)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, time.Hour, cfg.Oracle.ValidityWindow)
	assert.Equal(t, int64(1000), cfg.Oracle.MaxDeviationBP)
	assert.Equal(t, int64(95), cfg.Oracle.MinConfidence)
	assert.Equal(t, time.Hour, cfg.Risk.GlobalUpdateInterval)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "riskcore.events", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Redis.Address)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RISKCORE_OWNER", "ops")
	t.Setenv("RISKCORE_SERVER_PORT", "9090")
	t.Setenv("RISKCORE_ORACLE_MIN_CONFIDENCE", "90")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ops", cfg.Owner)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(90), cfg.Oracle.MinConfidence)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Owner:    "admin",
			LogLevel: "info",
			Server:   HTTPServerConfig{Host: "127.0.0.1", Port: 8080},
			Oracle:   OracleConfig{ValidityWindow: time.Hour, MaxDeviationBP: 1000, MinConfidence: 95},
			Risk:     RiskConfig{GlobalUpdateInterval: time.Hour},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Owner = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Oracle.MinConfidence = 101
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Risk.GlobalUpdateInterval = 0
	assert.Error(t, cfg.Validate())
}

// chdir is a stand-in for testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
