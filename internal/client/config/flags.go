package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophid/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     base URL of the API server
//	-g string     gRPC health address ("" disables the status command)
//	-t duration   per-request timeout
//
// Arguments other than these (such as -c) are filtered out with
// flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-t"})

	fs := flag.NewFlagSet("gophid-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API server")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "gRPC health address")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "per-request timeout")

	return fs.Parse(args)
}
