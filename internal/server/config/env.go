package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/gophid/internal/cryptox"
	"github.com/joho/godotenv"
)

// envConfig lists the environment variables the server reads. PORT may be a
// bare port ("8000") or a full address ("127.0.0.1:8000").
type envConfig struct {
	Port               string         `env:"PORT"`
	GlobalPrefix       string         `env:"GLOBAL_PREFIX"`
	DatabaseDSN        string         `env:"DATABASE_URL"`
	SecretKey          cryptox.Secret `env:"JWT_SECRET"`
	EncryptionPassword cryptox.Secret `env:"ENCRYPTION_PASSWORD"`
	EncryptionIV       cryptox.Secret `env:"ENCRYPTION_IV"`
	HashCost           int            `env:"HASH_SALT"`
	HealthAddrGRPC     string         `env:"GRPC_HEALTH_ADDR"`
	ShutdownTimeout    time.Duration  `env:"SHUTDOWN_TIMEOUT"`
}

// loadDotEnv exports the variables of a .env file into the process
// environment without overriding ones already set. A missing file is fine.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// parseEnv overlays environment variables onto config. When environ is nil
// the process environment is used.
func parseEnv(config *Config, environ map[string]string) error {
	// Seeded with the current values: env leaves fields without a variable untouched.
	e := envConfig{
		GlobalPrefix:       config.GlobalPrefix,
		DatabaseDSN:        config.DatabaseDSN,
		SecretKey:          config.SecretKey,
		EncryptionPassword: config.EncryptionPassword,
		EncryptionIV:       config.EncryptionIV,
		HashCost:           config.HashCost,
		HealthAddrGRPC:     config.HealthAddrGRPC,
		ShutdownTimeout:    config.ShutdownTimeout,
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return err
	}

	if e.Port != "" {
		config.HTTPAddr = portAddr(e.Port)
	}
	config.GlobalPrefix = e.GlobalPrefix
	config.DatabaseDSN = e.DatabaseDSN
	config.SecretKey = e.SecretKey
	config.EncryptionPassword = e.EncryptionPassword
	config.EncryptionIV = e.EncryptionIV
	config.HashCost = e.HashCost
	config.HealthAddrGRPC = e.HealthAddrGRPC
	config.ShutdownTimeout = e.ShutdownTimeout
	return nil
}

func portAddr(p string) string {
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}
