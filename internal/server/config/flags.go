package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/adminconsole/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN; empty keeps documents in memory
//	-s string   JWT HMAC secret key
//	-m bool     run schema migrations on start
func parseFlags(config *Config) {
	args := flagx.Filter(os.Args[1:], flagx.Known{"-a": true, "-d": true, "-s": true, "-m": false})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.BoolVar(&config.RunMigrations, "m", config.RunMigrations, "run schema migrations")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
