package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophid/internal/cryptox"
	"github.com/dmitrijs2005/gophid/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Durations use
// timex.Duration so both "10s" and integer nanoseconds are accepted.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	GlobalPrefix       string         `json:"global_prefix"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	EncryptionPassword string         `json:"encryption_password"`
	EncryptionIV       string         `json:"encryption_iv"`
	HashCost           int            `json:"hash_cost"`
	HealthAddrGRPC     string         `json:"health_addr_grpc"`
	ShutdownTimeout    timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file at path onto config. An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GlobalPrefix, c.GlobalPrefix)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setSecret(&config.SecretKey, c.SecretKey)
	setSecret(&config.EncryptionPassword, c.EncryptionPassword)
	setSecret(&config.EncryptionIV, c.EncryptionIV)
	setString(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	if c.HashCost != 0 {
		config.HashCost = c.HashCost
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setSecret(dst *cryptox.Secret, v string) {
	if v != "" {
		*dst = cryptox.NewSecret(v)
	}
}
