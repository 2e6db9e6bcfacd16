package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ambralab/tpdb-backend/internal/platform/envutil"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
)

type Config struct {
	Port         string        `yaml:"port"`
	AllowOrigins []string      `yaml:"allow_origins"`
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	AccessTTL    time.Duration `yaml:"-"`
	LoginLinkTTL time.Duration `yaml:"-"`
	AppBaseURL   string        `yaml:"app_base_url"`

	// Upload job runner
	WorkerInterval time.Duration `yaml:"-"`
	WorkerBatch    int           `yaml:"worker_batch"`

	AccessTTLSeconds      int `yaml:"access_ttl_seconds"`
	LoginLinkTTLMinutes   int `yaml:"login_link_ttl_minutes"`
	WorkerIntervalSeconds int `yaml:"worker_interval_seconds"`
}

// LoadConfig reads the environment, then overlays an optional YAML file
// named by CONFIG_FILE. File values win over environment values.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:                  envutil.Str("PORT", "8080"),
		JWTSecretKey:          envutil.Str("JWT_SECRET_KEY", "defaultsecret"),
		AppBaseURL:            envutil.Str("APP_BASE_URL", "http://localhost:3000"),
		AccessTTLSeconds:      envutil.Int("ACCESS_TOKEN_TTL", 3600),
		LoginLinkTTLMinutes:   envutil.Int("LOGIN_LINK_TTL_MINUTES", 30),
		WorkerIntervalSeconds: envutil.Int("UPLOAD_WORKER_INTERVAL", 15),
		WorkerBatch:           envutil.Int("UPLOAD_WORKER_BATCH", 5),
	}
	if origins := envutil.Str("ALLOW_ORIGINS", ""); origins != "" {
		cfg.AllowOrigins = splitCSV(origins)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("Loaded config overlay", "path", path)
	}

	cfg.AccessTTL = time.Duration(cfg.AccessTTLSeconds) * time.Second
	cfg.LoginLinkTTL = time.Duration(cfg.LoginLinkTTLMinutes) * time.Minute
	cfg.WorkerInterval = time.Duration(cfg.WorkerIntervalSeconds) * time.Second
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY is not set, using an insecure default")
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
