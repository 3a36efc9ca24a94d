package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/occurrence"
)

const (
	defaultAreasURL          = "https://github.com/pf3311-cienciadatosgeoespaciales/2021-iii/raw/main/contenido/b/datos/asp.geojson"
	defaultAreasIDProperty   = "id"
	defaultAreasNameProperty = "nombre_asp"
	defaultAreasTimeout      = 30 * time.Second
	defaultAreasMaxBytes     = 50 << 20
	defaultUploadMaxBytes    = 64 << 20
	defaultSessionTTL        = 30 * time.Minute
)

// Config holds environment-driven settings for the dashboard.
type Config struct {
	Port              int
	AreasURL          string
	AreasIDProperty   string
	AreasNameProperty string
	AreasTimeout      time.Duration
	AreasMaxBytes     int64
	AreasCacheTTL     time.Duration
	UploadMaxBytes    int64
	SessionTTL        time.Duration
	DatePolicy        occurrence.DatePolicy
	TopAreas          int
	DatabaseURL       string
	BearerToken       string
	LogLevel          string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:              8080,
		AreasURL:          defaultAreasURL,
		AreasIDProperty:   defaultAreasIDProperty,
		AreasNameProperty: defaultAreasNameProperty,
		AreasTimeout:      defaultAreasTimeout,
		AreasMaxBytes:     defaultAreasMaxBytes,
		UploadMaxBytes:    defaultUploadMaxBytes,
		SessionTTL:        defaultSessionTTL,
		DatePolicy:        occurrence.DatePolicyAbort,
		TopAreas:          15,
		LogLevel:          "info",
	}

	if portStr := env("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	}

	if v := env("AREAS_URL"); v != "" {
		cfg.AreasURL = v
	}
	if v := env("AREAS_ID_PROPERTY"); v != "" {
		cfg.AreasIDProperty = v
	}
	if v := env("AREAS_NAME_PROPERTY"); v != "" {
		cfg.AreasNameProperty = v
	}

	if v := env("AREAS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid AREAS_TIMEOUT: %s", v)
		}
		cfg.AreasTimeout = d
	}

	if v := env("AREAS_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return cfg, fmt.Errorf("invalid AREAS_CACHE_TTL: %s", v)
		}
		cfg.AreasCacheTTL = d
	}

	if v := env("AREAS_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid AREAS_MAX_BYTES: %s", v)
		}
		cfg.AreasMaxBytes = n
	}

	if v := env("UPLOAD_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %s", v)
		}
		cfg.UploadMaxBytes = n
	}

	if v := env("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid SESSION_TTL: %s", v)
		}
		cfg.SessionTTL = d
	}

	if v := env("DATE_POLICY"); v != "" {
		policy, err := occurrence.ParseDatePolicy(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid DATE_POLICY: %s", v)
		}
		cfg.DatePolicy = policy
	}

	if v := env("TOP_AREAS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopAreas = n
		} else {
			return cfg, fmt.Errorf("invalid TOP_AREAS: %s", v)
		}
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.BearerToken = env("API_BEARER_TOKEN")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
