package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "WISHLANE_DB_DSN"
	EnvDBHost = "WISHLANE_DB_HOST"
	EnvDBUser = "WISHLANE_DB_USER"
	EnvDBName = "WISHLANE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	OpenAI       OpenAIConfig
	Search       SearchConfig
	Flickr       FlickrConfig
	Uploads      UploadsConfig
	Pipeline     PipelineConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WISHLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"WISHLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WISHLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WISHLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WISHLANE_DB_DSN"`
	Driver string `envconfig:"WISHLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WISHLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"WISHLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WISHLANE_DB_USER"`
	LegacyPassword string `envconfig:"WISHLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"WISHLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"WISHLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WISHLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WISHLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WISHLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WISHLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WISHLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WISHLANE_REDIS_ADDR"`
	Password     string        `envconfig:"WISHLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"WISHLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WISHLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WISHLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WISHLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WISHLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WISHLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only verifies externally-issued access tokens; the identity
// service owns issuance.
type JWTConfig struct {
	Secret string `envconfig:"WISHLANE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"WISHLANE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WISHLANE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WISHLANE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WISHLANE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"WISHLANE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WISHLANE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EnrichTopic        string `envconfig:"WISHLANE_PUBSUB_ENRICH_TOPIC"`
	EnrichSubscription string `envconfig:"WISHLANE_PUBSUB_ENRICH_SUBSCRIPTION"`
}

// Enabled reports whether the durable queue is configured; when false the
// dispatcher falls back to the in-process worker pool.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.EnrichTopic) != ""
}

type OpenAIConfig struct {
	APIKey string `envconfig:"WISHLANE_OPENAI_API_KEY"`
	Model  string `envconfig:"WISHLANE_OPENAI_MODEL" default:"gpt-4o-mini"`
}

type SearchConfig struct {
	APIKey   string `envconfig:"WISHLANE_SEARCH_API_KEY"`
	EngineID string `envconfig:"WISHLANE_SEARCH_ENGINE_ID"`
}

// Enabled reports whether the custom search client can issue real queries.
func (s SearchConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.EngineID) != ""
}

type FlickrConfig struct {
	APIKey           string `envconfig:"WISHLANE_FLICKR_API_KEY"`
	APISecret        string `envconfig:"WISHLANE_FLICKR_API_SECRET"`
	OAuthToken       string `envconfig:"WISHLANE_FLICKR_OAUTH_TOKEN"`
	OAuthTokenSecret string `envconfig:"WISHLANE_FLICKR_OAUTH_TOKEN_SECRET"`
	PhotosetTitle    string `envconfig:"WISHLANE_FLICKR_PHOTOSET_TITLE" default:"wishlane-items"`
}

// Enabled reports whether the durable photo store is fully configured.
func (f FlickrConfig) Enabled() bool {
	return f.APIKey != "" && f.APISecret != "" && f.OAuthToken != "" && f.OAuthTokenSecret != ""
}

type UploadsConfig struct {
	Dir     string `envconfig:"WISHLANE_UPLOADS_DIR" default:"./uploads"`
	BaseURL string `envconfig:"WISHLANE_UPLOADS_BASE_URL" default:"http://localhost:8080"`
}

type PipelineConfig struct {
	ScrapeTimeout    time.Duration `envconfig:"WISHLANE_PIPELINE_SCRAPE_TIMEOUT" default:"10s"`
	ImageTimeout     time.Duration `envconfig:"WISHLANE_PIPELINE_IMAGE_TIMEOUT" default:"8s"`
	InferenceTimeout time.Duration `envconfig:"WISHLANE_PIPELINE_INFERENCE_TIMEOUT" default:"60s"`
	DailyLimit       int           `envconfig:"WISHLANE_PIPELINE_DAILY_LIMIT" default:"10"`
	Workers          int           `envconfig:"WISHLANE_PIPELINE_WORKERS" default:"4"`
	QueueSize        int           `envconfig:"WISHLANE_PIPELINE_QUEUE_SIZE" default:"64"`
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
