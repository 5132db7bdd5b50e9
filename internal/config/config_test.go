package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, ProbeTCP, cfg.ProbeMode)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 180*time.Second, cfg.ElectionPollInterval)
	assert.Equal(t, 10*time.Second, cfg.SweepInterval)
	assert.Equal(t, 5*time.Second, cfg.RegistryTimeout)
	assert.Equal(t, "exosphere", cfg.MongoDatabase)
	assert.Equal(t, "8081", cfg.Port)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"STORE_BACKEND":          "Mongo",
		"MONGO_URL":              "mongodb://db:27017",
		"PROBE_MODE":             "http",
		"PROBE_ADDR":             "db:27017",
		"ELECTION_POLL_INTERVAL": "30",
		"SWEEP_INTERVAL":         "2s",
		"SCHED_PORT":             "9090",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURL)
	assert.Equal(t, ProbeHTTP, cfg.ProbeMode)
	assert.Equal(t, "db:27017", cfg.ProbeAddr)
	assert.Equal(t, 30*time.Second, cfg.ElectionPollInterval)
	assert.Equal(t, 2*time.Second, cfg.SweepInterval)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := load(envOf(map[string]string{
		"STORE_BACKEND":  "cassandra",
		"PROBE_MODE":     "icmp",
		"SWEEP_INTERVAL": "soon",
		"PROBE_TIMEOUT":  "-5",
	}))
	require.ErrorIs(t, err, ErrInvalid)
	for _, key := range []string{"STORE_BACKEND", "PROBE_MODE", "SWEEP_INTERVAL", "PROBE_TIMEOUT"} {
		assert.Contains(t, err.Error(), key)
	}
}
