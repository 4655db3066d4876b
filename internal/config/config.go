package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver          string `yaml:"db_driver"`
	DBDSN             string `yaml:"db_dsn"`
	DBConnectAttempts int    `yaml:"db_connect_attempts"`

	ServerPort      string        `yaml:"server_port"`
	APIPrefix       string        `yaml:"api_prefix"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	SessionSecret string        `yaml:"session_secret"`
	JWTSecret     string        `yaml:"jwt_secret"`
	CredentialTTL time.Duration `yaml:"credential_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`

	AdminName     string `yaml:"admin_name"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	RecheckApproval      bool   `yaml:"auth_recheck_approval"`
	UpdateAuditAction    string `yaml:"audit_update_action"`
	OpenTaskLogs         bool   `yaml:"audit_logs_open"`
	CompleteFromAssigned bool   `yaml:"task_complete_from_assigned"`

	TracingEnabled bool   `yaml:"tracing_enabled"`
	TraceFile      string `yaml:"trace_file"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		DBDriver:          "postgres",
		DBConnectAttempts: 10,
		ServerPort:        "8080",
		APIPrefix:         "/api",
		ShutdownTimeout:   10 * time.Second,
		CredentialTTL:     7 * 24 * time.Hour,
		AdminName:         "Administrator",
		AdminEmail:        "admin@tasks.local",
		AdminPassword:     "Admin123!",
		LogLevel:          "info",
		LogFormat:         "text",
		RecheckApproval:   true,
		UpdateAuditAction: "updated",
	}
}

// Load reads .env (or envFile), then the optional YAML file at path, then
// applies environment overrides and validates the result.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("DB_DRIVER", &c.DBDriver)
	str("DB_DSN", &c.DBDSN)
	str("SERVER_PORT", &c.ServerPort)
	str("API_PREFIX", &c.APIPrefix)
	str("SESSION_SECRET", &c.SessionSecret)
	str("JWT_SECRET", &c.JWTSecret)
	str("ADMIN_NAME", &c.AdminName)
	str("ADMIN_EMAIL", &c.AdminEmail)
	str("ADMIN_PASSWORD", &c.AdminPassword)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("AUDIT_UPDATE_ACTION", &c.UpdateAuditAction)
	str("TRACE_FILE", &c.TraceFile)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	bools := map[string]*bool{
		"COOKIE_SECURE":               &c.CookieSecure,
		"AUTH_RECHECK_APPROVAL":       &c.RecheckApproval,
		"AUDIT_LOGS_OPEN":             &c.OpenTaskLogs,
		"TASK_COMPLETE_FROM_ASSIGNED": &c.CompleteFromAssigned,
		"TRACING_ENABLED":             &c.TracingEnabled,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"CREDENTIAL_TTL":   &c.CredentialTTL,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("DB_CONNECT_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_CONNECT_ATTEMPTS: %w", err)
		}
		c.DBConnectAttempts = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql":
		if c.DBDSN == "" {
			return errors.New("DB_DSN is not set")
		}
	case "sqlite":
		if c.DBDSN == "" {
			c.DBDSN = "tasks.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is not set")
	}
	if c.JWTSecret == "" {
		c.JWTSecret = c.SessionSecret
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.DBConnectAttempts < 1 {
		c.DBConnectAttempts = 1
	}
	if c.CredentialTTL <= 0 {
		return errors.New("CREDENTIAL_TTL must be positive")
	}

	switch c.UpdateAuditAction {
	case "updated", "created":
	default:
		return fmt.Errorf("AUDIT_UPDATE_ACTION must be updated or created, got %q", c.UpdateAuditAction)
	}
	return nil
}
