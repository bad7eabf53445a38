package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	GatewayURL string `env:"GATEWAY_URL" env-default:"http://localhost:3000"`

	// MaxRecordDuration is the hard ceiling on one voice recording. Capture
	// auto-finalizes when it elapses even without an explicit stop.
	MaxRecordDuration time.Duration `env:"MAX_RECORD_DURATION" env-default:"10s"`
}

func MustLoad() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read environment variables: " + err.Error())
	}

	return &cfg
}
