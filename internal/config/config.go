package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Addr      string        `env:"ADDR" envDefault:":8080"`
	DBDriver  string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN     string        `env:"DB_DSN" envDefault:"parley.db"`
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	UploadDir string        `env:"UPLOAD_DIR" envDefault:"uploads"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
