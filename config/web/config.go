package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port int `env:"PORT" env-default:"3000"`

	// BackendURL is the single backend-origin setting. The default matches
	// the local-development backend.
	BackendURL string `env:"BACKEND_URL" env-default:"http://localhost:8000"`

	// ProxyTimeout bounds ordinary forwarded calls. SlowProxyTimeout applies
	// to endpoints whose backend work invokes external AI tooling.
	ProxyTimeout     time.Duration `env:"PROXY_TIMEOUT" env-default:"15s"`
	SlowProxyTimeout time.Duration `env:"SLOW_PROXY_TIMEOUT" env-default:"90s"`
}

func MustLoad() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read environment variables: " + err.Error())
	}
	return &cfg
}
