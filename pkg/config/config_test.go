package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int      `env:"TEST_CFG_PORT" envDefault:"8080"`
	LogLevel string   `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Brokers  []string `env:"TEST_CFG_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

type validatedConfig struct {
	Port int `env:"TEST_CFG_PORT" envDefault:"8080"`
}

func (c *validatedConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port out of range")
	}
	return nil
}

type requiredConfig struct {
	URL string `env:"TEST_CFG_URL,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BROKERS", "k1:9092,k2:9092")

	var cfg testConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	assert.ErrorContains(t, Load(&cfg), "parse config")
}

func TestLoad_Required(t *testing.T) {
	var missing requiredConfig
	assert.ErrorContains(t, LoadFromMap(&missing, map[string]string{}), "parse config")

	var present requiredConfig
	require.NoError(t, LoadFromMap(&present, map[string]string{"TEST_CFG_URL": "http://user:8001"}))
	assert.Equal(t, "http://user:8001", present.URL)
}

func TestLoad_RunsValidate(t *testing.T) {
	var cfg validatedConfig
	err := LoadFromMap(&cfg, map[string]string{"TEST_CFG_PORT": "70000"})
	assert.ErrorContains(t, err, "validate config: port out of range")

	require.NoError(t, LoadFromMap(&cfg, map[string]string{"TEST_CFG_PORT": "8080"}))
}
