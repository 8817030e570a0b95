package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/osool/allowance-gateway/pkg/logger"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Configuration This struct holds config envs and values
// which are used across the gateway. Only this struct must be used
// to hold any configuration values, no direct access to
// env, ini or any other config source should be made
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"allowance_gateway"`
	AppDebug            bool   `env:"APP_DEBUG" default:"1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	HttpListenAddr         string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`
	HttpServerReadTimeout  int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	// Token and cache lifetimes. 24h matches the daily allowance cycle.
	AttendanceTokenTTL time.Duration `env:"ATTENDANCE_TOKEN_TTL" default:"24h"`
	SpendTokenTTL      time.Duration `env:"SPEND_TOKEN_TTL" default:"24h"`
	BalanceCacheTTL    time.Duration `env:"BALANCE_CACHE_TTL" default:"24h"`

	// DefaultDailyAllowance is the fallback base amount when neither the
	// caller nor the holder's program specifies one. Two-decimal string,
	// parsed into a decimal at startup.
	DefaultDailyAllowance string `env:"DEFAULT_DAILY_ALLOWANCE" default:"100.00"`

	AuditStreamName    string        `env:"AUDIT_STREAM_NAME" default:"audit:events"`
	AuditStreamMaxLen  int64         `env:"AUDIT_STREAM_MAX_LEN" default:"100000"`
	AuditConsumerGroup string        `env:"AUDIT_CONSUMER_GROUP" default:"audit-writers"`
	AuditConsumerName  string        `env:"AUDIT_CONSUMER_NAME"`
	AuditPollInterval  time.Duration `env:"AUDIT_POLL_INTERVAL" default:"1s"`
	AuditBufferSize    int           `env:"AUDIT_BUFFER_SIZE" default:"1024"`
	AuditWorkers       int           `env:"AUDIT_WORKERS" default:"2"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
