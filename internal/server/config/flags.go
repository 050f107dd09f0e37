package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":5150")
//	-d string   PostgreSQL DSN
//	-k string   private key path (PEM, file or s3://bucket/key)
//	-p string   public key path (PEM, file or s3://bucket/key)
//	-t int      token lifetime, seconds
//	-w int      password hashing workers
//	-l string   log level
//
// Args are filtered with flagx.FilterArgs first so -c/-config and flags owned
// by other packages don't trip the parser.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-k", "-p", "-t", "-w", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PrivateKeyPath, "k", config.PrivateKeyPath, "private key path")
	fs.StringVar(&config.PublicKeyPath, "p", config.PublicKeyPath, "public key path")
	lifetime := fs.Int("t", int(config.TokenLifetime.Seconds()), "token lifetime (in seconds)")
	fs.IntVar(&config.HashWorkers, "w", config.HashWorkers, "password hashing workers")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.TokenLifetime = time.Duration(*lifetime) * time.Second
	return nil
}
