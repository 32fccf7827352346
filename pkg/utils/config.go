package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tailscale/hujson"
)

// ConfigFileName is the optional config file looked up in the working
// directory. It is HuJSON, so comments and trailing commas are fine.
const ConfigFileName = "figurehub.json"

type Config struct {
	Addr        string `json:"addr"`
	CatalogDir  string `json:"catalog_dir"`
	BackupDir   string `json:"backup_dir"`
	DBPath      string `json:"db_path"`
	JWTSecret   string `json:"jwt_secret"`
	JWTIssuer   string `json:"jwt_issuer"`
	JWTTTLHours int    `json:"jwt_ttl_hours"`
}

func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		CatalogDir:  "data/catalog",
		BackupDir:   "data/backups",
		DBPath:      "data/figurehub.db",
		JWTSecret:   "dev-secret-change-me",
		JWTIssuer:   "figurehub",
		JWTTTLHours: 24,
	}
}

// LoadConfig layers, lowest to highest precedence: defaults, the config
// file at path (or ConfigFileName when path is empty; a missing file is
// fine), then FIGUREHUB_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigFileName
	}
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults + env only
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		std, err := hujson.Standardize(b)
		if err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := json.Unmarshal(std, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.JWTTTLHours <= 0 {
		cfg.JWTTTLHours = 24
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FIGUREHUB_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("FIGUREHUB_CATALOG_DIR"); v != "" {
		cfg.CatalogDir = v
	}
	if v := os.Getenv("FIGUREHUB_BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
	}
	if v := os.Getenv("FIGUREHUB_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FIGUREHUB_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("FIGUREHUB_JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("FIGUREHUB_JWT_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.JWTTTLHours = n
		}
	}
}

func (c Config) JWTDuration() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}
