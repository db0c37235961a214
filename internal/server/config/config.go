// Package config handles configuration for the store server,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the store server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory backend.
//   - SecretKey: HMAC secret for checking operator tokens (HS256).
//   - RunMigrations: apply the embedded schema migrations on start.
type Config struct {
	EndpointAddrGRPC string
	DatabaseDSN      string
	SecretKey        string
	RunMigrations    bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.RunMigrations = true
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
