package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// AppConfig is the whole runtime configuration. Every key can be set in
// config.yaml or overridden by the upper-cased environment variable
// (log_level -> LOG_LEVEL).
type AppConfig struct {
	AppEnv          string        `mapstructure:"app_env"`
	LogLevel        string        `mapstructure:"log_level"`
	LogDir          string        `mapstructure:"log_dir"`
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Storage.
	StoreDriver string `mapstructure:"store_driver" validate:"oneof=sqlite postgres memory"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	DBHost      string `mapstructure:"db_host"`
	DBPort      int    `mapstructure:"db_port" validate:"min=1,max=65535"`
	DBUser      string `mapstructure:"db_user"`
	DBPassword  string `mapstructure:"db_password"`
	DBName      string `mapstructure:"db_name"`
	DBSSLMode   string `mapstructure:"db_sslmode"`
	DatabaseURL string `mapstructure:"database_url"`

	// Station source.
	MeteostatBaseURL      string        `mapstructure:"meteostat_base_url" validate:"required,url"`
	MeteostatStationsPath string        `mapstructure:"meteostat_stations_path" validate:"required"`
	MeteostatHourlyPath   string        `mapstructure:"meteostat_hourly_path" validate:"required"`
	StationCountry        string        `mapstructure:"station_country"`
	StationRegion         string        `mapstructure:"station_region"`
	StationLimit          int           `mapstructure:"station_limit" validate:"min=0"`
	HTTPTimeout           time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	FetchRatePerSec       float64       `mapstructure:"fetch_rate_per_sec" validate:"min=0"`
	FetchMaxRetries       int           `mapstructure:"fetch_max_retries" validate:"min=0"`
	FetchRetryInterval    time.Duration `mapstructure:"fetch_retry_interval"`

	ReportDir string `mapstructure:"report_dir" validate:"required"`

	// Daily batches.
	ScheduleEnabled bool   `mapstructure:"schedule_enabled"`
	ScheduleAt      string `mapstructure:"schedule_at"`
	PastDays        int    `mapstructure:"past_days" validate:"min=0"`
	FutureDays      int    `mapstructure:"future_days" validate:"min=0"`
}

var validate = validator.New()

// Load reads .env (if present), config.yaml (if present) and the environment,
// in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
	v.SetDefault("port", "8080")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("store_driver", DriverSQLite)
	v.SetDefault("sqlite_path", "weather.db")
	v.SetDefault("db_host", "")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("database_url", "")

	v.SetDefault("meteostat_base_url", "https://bulk.meteostat.net/v2")
	v.SetDefault("meteostat_stations_path", "stations/slim.csv.gz")
	v.SetDefault("meteostat_hourly_path", "hourly/{year}/{station}.csv.gz")
	v.SetDefault("station_country", "US")
	v.SetDefault("station_region", "")
	v.SetDefault("station_limit", 0)
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("fetch_rate_per_sec", 0)
	v.SetDefault("fetch_max_retries", 0)
	v.SetDefault("fetch_retry_interval", "1s")

	v.SetDefault("report_dir", "logs")

	v.SetDefault("schedule_enabled", false)
	v.SetDefault("schedule_at", "02:00")
	v.SetDefault("past_days", 7)
	v.SetDefault("future_days", 7)
}

// Validate checks field constraints and the cross-field rules tags cannot express.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.StoreDriver == DriverPostgres && c.DatabaseURL == "" && (c.DBHost == "" || c.DBName == "") {
		return errors.New("postgres store requires DATABASE_URL or DB_HOST and DB_NAME")
	}
	if c.StoreDriver == DriverSQLite && c.SQLitePath == "" {
		return errors.New("sqlite store requires SQLITE_PATH")
	}
	if c.FetchMaxRetries > 0 && c.FetchRetryInterval <= 0 {
		return errors.New("FETCH_RETRY_INTERVAL must be positive when retries are enabled")
	}
	if c.ScheduleEnabled {
		if _, err := time.Parse("15:04", c.ScheduleAt); err != nil {
			return fmt.Errorf("SCHEDULE_AT must be HH:MM: %w", err)
		}
	}
	return nil
}

// DSN returns the data source of the configured store driver.
func (c *AppConfig) DSN() string {
	switch c.StoreDriver {
	case DriverSQLite:
		return c.SQLitePath
	case DriverPostgres:
		if c.DatabaseURL != "" {
			return c.DatabaseURL
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
			Path:   "/" + c.DBName,
		}
		if c.DBUser != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		}
		if c.DBSSLMode != "" {
			u.RawQuery = "sslmode=" + url.QueryEscape(c.DBSSLMode)
		}
		return u.String()
	default:
		return ""
	}
}
