package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   PostgreSQL DSN
//	-s string   cookie signing secret
//	-t int      session lifetime, minutes
//	-b string   session backend: postgres, redis or memory
//	-r string   Redis address
//	-n string   session cookie name
//	-secure     mark the session cookie Secure (use -secure=false to unset)
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs first so -c/-config and -env,
// which are handled elsewhere, do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-b", "-r", "-n", "-secure", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "cookie signing secret")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session lifetime (in minutes)")

	fs.StringVar(&config.SessionBackend, "b", config.SessionBackend, "session backend: postgres, redis or memory")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.CookieName, "n", config.CookieName, "session cookie name")
	fs.BoolVar(&config.CookieSecure, "secure", config.CookieSecure, "send the session cookie over HTTPS only")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only an explicit -t replaces the TTL, so sub-minute values from the
	// environment or JSON survive
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
}
