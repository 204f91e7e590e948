package config

import (
	"flag"
	"io"

	"github.com/tumbsky/tumbsky/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-d string     database DSN (postgres://, sqlite://, file:)
//	-s string     cookie secret
//	-k string     session sealing key
//	-u string     OAuth public URL (https)
//	-t string     Tap URL
//	-r string     Redis address for OAuth state
//	-l string     log level
//	-i duration   OAuth state prune interval
//	-n int        timeline page size
//
// Arguments are first narrowed with flagx.FilterArgs so flags owned by other
// components (such as -c) do not fail the parse.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-k", "-u", "-t", "-r", "-l", "-i", "-n"})

	fs := flag.NewFlagSet("tumbsky", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CookieSecret, "s", config.CookieSecret, "cookie secret")
	fs.StringVar(&config.SessionKey, "k", config.SessionKey, "session sealing key")
	fs.StringVar(&config.PublicURL, "u", config.PublicURL, "oauth public url")
	fs.StringVar(&config.TapURL, "t", config.TapURL, "tap url")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.StatePruneInterval, "i", config.StatePruneInterval, "oauth state prune interval")
	fs.IntVar(&config.PageSize, "n", config.PageSize, "timeline page size")

	return fs.Parse(args)
}
