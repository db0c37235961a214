package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"server"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	want := Config{EndpointAddrGRPC: ":50051", SecretKey: "secretKey", RunMigrations: true}
	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "all flags",
			args: []string{"-a", "127.0.0.1:9090", "-d", "postgres://db", "-s", "secret", "-m=false"},
			expected: Config{
				EndpointAddrGRPC: "127.0.0.1:9090",
				DatabaseDSN:      "postgres://db",
				SecretKey:        "secret",
				RunMigrations:    false,
			},
		},
		{
			name:     "bare bool and foreign flags",
			args:     []string{"-x", "1", "-m", "-s", "k"},
			expected: Config{EndpointAddrGRPC: ":50051", SecretKey: "k", RunMigrations: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)

			c := &Config{}
			c.LoadDefaults()
			require.NotPanics(t, func() { parseFlags(c) })
			assert.Empty(t, cmp.Diff(tt.expected, *c))
		})
	}
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_grpc": ":7000",
		"database_dsn":       "postgres://json",
		"run_migrations":     false,
	})
	withArgs(t, "-config", path)

	c := &Config{}
	c.LoadDefaults()
	parseJson(c)

	want := Config{EndpointAddrGRPC: ":7000", DatabaseDSN: "postgres://json", SecretKey: "secretKey", RunMigrations: false}
	assert.Empty(t, cmp.Diff(want, *c))
}

func TestParseJson_Errors(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "missing.json"))
	assert.Panics(t, func() { parseJson(&Config{}) })

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	withArgs(t, "-c", bad)
	assert.Panics(t, func() { parseJson(&Config{}) })
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"secret_key": "from-json", "endpoint_addr_grpc": ":7000"})
	withArgs(t, "-c", path, "-s", "from-flag")

	c := LoadConfig()
	assert.Equal(t, "from-flag", c.SecretKey)
	assert.Equal(t, ":7000", c.EndpointAddrGRPC)
}
