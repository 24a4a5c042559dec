package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/numera/numera/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Numbering  NumberingConfig  `validate:"required"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `validate:"required"`
	Port                   int    `validate:"required"`
	User                   string `validate:"required"`
	Password               string
	DBName                 string `validate:"required"`
	SSLMode                string `validate:"required"`
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
	AutoMigrate            bool
}

// NumberingConfig holds the knobs of the allocation/retry path. LockTimeout
// bounds how long an allocator waits on a contended counter row;
// OverallTimeout bounds one CreateDocument call across all retry attempts.
type NumberingConfig struct {
	MaxAttempts    int           `validate:"required,min=1"`
	InitialBackoff time.Duration `validate:"required"`
	MaxBackoff     time.Duration `validate:"required"`
	OverallTimeout time.Duration `validate:"required"`
	LockTimeout    time.Duration `validate:"required"`
}

type SentryConfig struct {
	Enabled     bool    `default:"false"`
	DSN         string  `default:""`
	Environment string  `default:""`
	SampleRate  float64 `default:"1.0"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Load .env if present, mirrors local development flow
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/numera")

	v.SetEnvPrefix("NUMERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "numera")
	v.SetDefault("postgres.dbname", "numera")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 20)
	v.SetDefault("postgres.maxidleconns", 10)
	v.SetDefault("postgres.connmaxlifetimeminutes", 30)
	v.SetDefault("numbering.maxattempts", 3)
	v.SetDefault("numbering.initialbackoff", 50*time.Millisecond)
	v.SetDefault("numbering.maxbackoff", 2*time.Second)
	v.SetDefault("numbering.overalltimeout", 30*time.Second)
	v.SetDefault("numbering.locktimeout", 5*time.Second)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Numbering: NumberingConfig{
			MaxAttempts:    3,
			InitialBackoff: 50 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			OverallTimeout: 30 * time.Second,
			LockTimeout:    5 * time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User, c.Password, c.DBName, c.Host, c.Port, c.SSLMode,
	)
}
