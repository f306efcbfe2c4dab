package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting the server needs. Values come from the
// environment (optionally via a .env file) with sane defaults for local use.
type Config struct {
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Access and refresh tokens are signed with distinct secrets so one kind
	// can never be replayed as the other.
	AccessSecret  string        `envconfig:"JWT_ACCESS_SECRET" required:"true"`
	RefreshSecret string        `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	AccessTTL     time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTTL    time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
	TokenIssuer   string        `envconfig:"TOKEN_ISSUER" default:"vivero"`

	BcryptCost         int           `envconfig:"BCRYPT_COST" default:"12"`
	PermissionCacheTTL time.Duration `envconfig:"PERMISSION_CACHE_TTL" default:"30s"`

	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL" default:"admin@vivero.local"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD" default:""`
}

func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
