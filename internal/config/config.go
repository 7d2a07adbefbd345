// Package config loads runtime settings from a .env file and the
// process environment, environment taking precedence.
package config

import (
	"log"

	"github.com/spf13/viper"
)

type Argon2Params struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

type Config struct {
	ServerPort string
	DataDir    string
	LogDir     string

	// AuthHasher selects the password scheme for new hashes. The
	// default stays "legacy" so existing tables keep their format;
	// set "argon2" to opt a deployment into the stronger scheme.
	AuthHasher string
	Argon2     Argon2Params
}

// Load reads .env if present and resolves every setting with its
// default.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("storage.data_dir", "DATA_DIR")
	viper.BindEnv("storage.log_dir", "LOG_DIR")
	viper.BindEnv("auth.hasher", "AUTH_HASHER")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("storage.log_dir", "./logs")
	viper.SetDefault("auth.hasher", "legacy")
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	return &Config{
		ServerPort: viper.GetString("server.port"),
		DataDir:    viper.GetString("storage.data_dir"),
		LogDir:     viper.GetString("storage.log_dir"),
		AuthHasher: viper.GetString("auth.hasher"),
		Argon2: Argon2Params{
			Time:       viper.GetUint32("argon2.time"),
			Memory:     viper.GetUint32("argon2.memory"),
			Threads:    uint8(viper.GetUint16("argon2.threads")),
			KeyLength:  viper.GetUint32("argon2.key_length"),
			SaltLength: viper.GetUint32("argon2.salt_length"),
		},
	}
}
