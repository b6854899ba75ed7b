package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"studytrack/pkg/session"
)

// Config represents the top-level structure of config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  session.Config `yaml:"session"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Places   PlacesConfig   `yaml:"places"`
}

type ServerConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
}

// SupabaseConfig points at the hosted persistence collaborator. The anon key
// authenticates the client itself; row-level authorization uses the JWT
// forwarded from each request.
type SupabaseConfig struct {
	URL       string `yaml:"url"`
	AnonKey   string `yaml:"anonKey"`
	JWTSecret string `yaml:"jwtSecret"`
}

type PlacesConfig struct {
	APIKey   string `yaml:"apiKey"`
	Language string `yaml:"language"`
	Region   string `yaml:"region"`
}

// Load reads the YAML file, applies environment overrides for secrets and
// fills defaults. A missing file is not an error; environment-only setups are
// supported.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Session.Type = session.StoreTypeRedis
		cfg.Session.Redis.Addr = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.Supabase.AnonKey = v
	}
	if v := os.Getenv("SUPABASE_JWT_SECRET"); v != "" {
		cfg.Supabase.JWTSecret = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Places.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Places.Language == "" {
		cfg.Places.Language = "ko"
	}
	if cfg.Places.Region == "" {
		cfg.Places.Region = "kr"
	}
}
