package config

import "time"

// Config holds runtime settings for the admin console.
//
// An empty S3Bucket keeps photos in process memory, which is only useful for
// trying the console out.
type Config struct {
	ServerEndpointAddr  string
	AccessToken         string
	OnlineCheckInterval time.Duration

	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Endpoint  string
	// URLExpiry is the lifetime of presigned photo URLs. Zero stores plain
	// object URLs, for public buckets.
	URLExpiry time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.S3Region = "us-east-1"
	c.URLExpiry = 7 * 24 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
