package config

import (
	"flag"

	"github.com/dmitrijs2005/gophid/internal/cryptox"
	"github.com/dmitrijs2005/gophid/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g. ":8000")
//	-p string     global route prefix
//	-d string     PostgreSQL DSN
//	-s string     token HMAC secret
//	-e string     lookup encryption passphrase
//	-i string     lookup encryption IV, base64
//	-k int        bcrypt cost
//	-g string     gRPC health bind address
//	-t duration   graceful shutdown timeout
//
// args is filtered with flagx.FilterArgs first, so flags meant for other
// parsers (-c) do not cause errors here.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-p", "-d", "-s", "-e", "-i", "-k", "-g", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.GlobalPrefix, "p", config.GlobalPrefix, "global route prefix")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.Func("s", "token secret key", secretFlag(&config.SecretKey))
	fs.Func("e", "encryption password", secretFlag(&config.EncryptionPassword))
	fs.Func("i", "encryption iv (base64)", secretFlag(&config.EncryptionIV))
	fs.IntVar(&config.HashCost, "k", config.HashCost, "bcrypt cost")
	fs.StringVar(&config.HealthAddrGRPC, "g", config.HealthAddrGRPC, "gRPC health address")
	fs.DurationVar(&config.ShutdownTimeout, "t", config.ShutdownTimeout, "graceful shutdown timeout")

	return fs.Parse(args)
}

func secretFlag(dst *cryptox.Secret) func(string) error {
	return func(v string) error {
		*dst = cryptox.NewSecret(v)
		return nil
	}
}
