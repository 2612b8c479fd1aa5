package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "RECIPECOST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	App AppConfig
	DB  DBConfig
}

type AppConfig struct {
	Env       string `envconfig:"RECIPECOST_APP_ENV" default:"dev"`
	Port      string `envconfig:"RECIPECOST_PORT" default:"8080"`
	LogLevel  string `envconfig:"RECIPECOST_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"RECIPECOST_LOG_FORMAT" default:"json"`
	SeedDemo  bool   `envconfig:"RECIPECOST_SEED_DEMO" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) Addr() string {
	return ":" + a.Port
}

type DBConfig struct {
	Path        string `envconfig:"RECIPECOST_DB_PATH" default:"./recipecost.db"`
	AutoMigrate bool   `envconfig:"RECIPECOST_DB_AUTO_MIGRATE" default:"true"`
}

// Load reads environment variables and returns a populated Config.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is not an error;
// production should use real env injection. Existing variables are not overwritten.
func LoadFrom(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		return nil, fmt.Errorf("%s_DB_PATH must not be empty", EnvPrefix)
	}
	if strings.TrimSpace(cfg.App.Port) == "" {
		return nil, fmt.Errorf("%s_PORT must not be empty", EnvPrefix)
	}

	return &cfg, nil
}
