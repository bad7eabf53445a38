package config

import "github.com/ilyakaznacheev/cleanenv"

type Config struct {
	Port int `env:"PORT" env-default:"8000"`

	// DBPath locates the sqlite database holding recordings, transcripts,
	// extracted event details and synthesized audio.
	DBPath string `env:"EVENTS_DB_PATH" env-default:"events.db"`
}

func MustLoad() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read environment variables: " + err.Error())
	}

	return &cfg
}
