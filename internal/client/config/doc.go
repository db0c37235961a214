// Package config loads runtime configuration for the admin console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "eyJhbGciOi...",
//	  "online_check_interval": "3s",
//	  "s3_region": "us-east-1",
//	  "s3_access_key": "minio",
//	  "s3_secret_key": "minio123",
//	  "s3_bucket": "adminconsole",
//	  "s3_endpoint": "http://127.0.0.1:9000",
//	  "url_expiry": "168h"
//	}
package config
