package config

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-w", "-d", "-R", "-s", "-m", "-t", "-r", "-f", "-l", "-p"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC bind address, empty disables gRPC
//	-w string   storage driver: pgx | sqlite
//	-d string   database DSN
//	-R string   Redis address, empty selects the in-process registry
//	-s string   JWT HMAC secret key
//	-m string   signing algorithm: HS256 | HS384 | HS512
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-f          revocation registry fail-open
//	-l string   log level
//	-p string   comma-separated trusted proxy IPs/CIDRs
//
// Arguments not in this list are filtered out first so that -c and flags of
// other components do not trip the parser.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("authkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address")
	fs.StringVar(&config.StorageDriver, "w", config.StorageDriver, "storage driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.SigningAlgorithm, "m", config.SigningAlgorithm, "signing algorithm")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.BoolVar(&config.RevocationFailOpen, "f", config.RevocationFailOpen, "accept tokens when the revocation registry is unreachable")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.Func("p", "trusted proxies", func(v string) error {
		config.TrustedProxies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				config.TrustedProxies = append(config.TrustedProxies, p)
			}
		}
		return nil
	})

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	// Only touch durations when the flag was given, so sub-minute values from
	// JSON or env survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
		}
	})
	return nil
}
