package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable read by Load.
const EnvPrefix = "RETAIL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside envconfig tags (tests, error text).
const (
	EnvAppEnv = "RETAIL_APP_ENV"
	EnvPort   = "RETAIL_APP_PORT"
	EnvDBDSN  = "RETAIL_DB_DSN"
	EnvDBHost = "RETAIL_DB_HOST"
	EnvDBUser = "RETAIL_DB_USER"
	EnvDBName = "RETAIL_DB_NAME"

	EnvAssistantEndpoint = "RETAIL_ASSISTANT_ENDPOINT"
	EnvAssistantAPIKey   = "RETAIL_ASSISTANT_API_KEY"

	EnvEventsRedisURL = "RETAIL_EVENTS_REDIS_URL"
	EnvEventsChannel  = "RETAIL_EVENTS_CHANNEL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Assistant    AssistantConfig
	Events       EventsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RETAIL_APP_ENV" required:"true"`
	Port         string `envconfig:"RETAIL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RETAIL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RETAIL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RETAIL_DB_DSN"`
	Driver string `envconfig:"RETAIL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RETAIL_DB_HOST"`
	LegacyPort     int    `envconfig:"RETAIL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RETAIL_DB_USER"`
	LegacyPassword string `envconfig:"RETAIL_DB_PASSWORD"`
	LegacyName     string `envconfig:"RETAIL_DB_NAME"`
	LegacySSLMode  string `envconfig:"RETAIL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RETAIL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RETAIL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RETAIL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RETAIL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// AssistantConfig holds the completion provider wiring. Values are read once at
// process start and handed to the orchestrator's constructor, never re-read in
// request handling.
type AssistantConfig struct {
	Endpoint string        `envconfig:"RETAIL_ASSISTANT_ENDPOINT"`
	APIKey   string        `envconfig:"RETAIL_ASSISTANT_API_KEY"`
	Model    string        `envconfig:"RETAIL_ASSISTANT_MODEL" default:"model-router"`
	Timeout  time.Duration `envconfig:"RETAIL_ASSISTANT_TIMEOUT" default:"30s"`
}

// EventsConfig configures the interaction event sink. An empty RedisURL
// disables forwarding entirely; that is a valid deployment, not an error.
type EventsConfig struct {
	RedisURL       string        `envconfig:"RETAIL_EVENTS_REDIS_URL"`
	Channel        string        `envconfig:"RETAIL_EVENTS_CHANNEL" default:"assistant-turns"`
	BufferSize     int           `envconfig:"RETAIL_EVENTS_BUFFER_SIZE" default:"256"`
	PublishTimeout time.Duration `envconfig:"RETAIL_EVENTS_PUBLISH_TIMEOUT" default:"5s"`
}

// Enabled reports whether a transport target has been configured.
func (e EventsConfig) Enabled() bool {
	return strings.TrimSpace(e.RedisURL) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RETAIL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RETAIL_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
