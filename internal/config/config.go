package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mailbox   MailboxConfig   `mapstructure:"mailbox"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration.
// Driver "sqlite" uses Path; driver "mysql" uses the network fields.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// Mailbox source names
const (
	SourceNone  = "none"
	SourceGmail = "gmail"
	SourceIMAP  = "imap"
	SourceEML   = "eml"
)

// MailboxConfig selects and configures the mailbox the candidates are pulled from
type MailboxConfig struct {
	Source string      `mapstructure:"source"`
	Gmail  GmailConfig `mapstructure:"gmail"`
	IMAP   IMAPConfig  `mapstructure:"imap"`
	EML    EMLConfig   `mapstructure:"eml"`
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	Query        string `mapstructure:"query"`
	MaxResults   int64  `mapstructure:"max_results"`
}

// IMAPConfig holds IMAP connection configuration
type IMAPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Mailbox      string `mapstructure:"mailbox"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

// EMLConfig points at a directory of RFC 5322 .eml files
type EMLConfig struct {
	Dir string `mapstructure:"dir"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
}

// LoggingConfig holds logrus configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from an optional .env file, a config file
// and environment variables. An empty path searches "." and "./config".
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("Loaded environment from .env")
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/flight-review.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)

	v.SetDefault("mailbox.source", SourceNone)
	v.SetDefault("mailbox.gmail.query", "newer_than:30d")
	v.SetDefault("mailbox.gmail.max_results", 500)
	v.SetDefault("mailbox.imap.host", "imap.gmail.com")
	v.SetDefault("mailbox.imap.port", 993)
	v.SetDefault("mailbox.imap.mailbox", "INBOX")
	v.SetDefault("mailbox.imap.lookback_days", 30)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval_minutes", 15)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Mailbox
	v.BindEnv("mailbox.source", "MAILBOX_SOURCE")
	v.BindEnv("mailbox.gmail.client_id", "GMAIL_CLIENT_ID")
	v.BindEnv("mailbox.gmail.client_secret", "GMAIL_CLIENT_SECRET")
	v.BindEnv("mailbox.gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	v.BindEnv("mailbox.gmail.user_email", "GMAIL_USER_EMAIL")
	v.BindEnv("mailbox.gmail.query", "GMAIL_QUERY")
	v.BindEnv("mailbox.imap.host", "IMAP_HOST")
	v.BindEnv("mailbox.imap.port", "IMAP_PORT")
	v.BindEnv("mailbox.imap.user", "IMAP_USER")
	v.BindEnv("mailbox.imap.password", "IMAP_PASSWORD")
	v.BindEnv("mailbox.imap.mailbox", "IMAP_MAILBOX")
	v.BindEnv("mailbox.eml.dir", "EML_DIR")

	// Scheduler
	v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	v.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// GetDSN returns the database connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	default:
		return c.Path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "mysql":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch strings.ToLower(c.Mailbox.Source) {
	case "", SourceNone:
	case SourceGmail:
		g := c.Mailbox.Gmail
		if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required for the gmail source")
		}
	case SourceIMAP:
		if c.Mailbox.IMAP.User == "" || c.Mailbox.IMAP.Password == "" {
			return fmt.Errorf("IMAP credentials are required for the imap source")
		}
	case SourceEML:
		if c.Mailbox.EML.Dir == "" {
			return fmt.Errorf("eml directory is required for the eml source")
		}
	default:
		return fmt.Errorf("unsupported mailbox source %q", c.Mailbox.Source)
	}

	if c.Scheduler.Enabled && c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

// HasMailbox reports whether a mailbox source is configured
func (c *Config) HasMailbox() bool {
	s := strings.ToLower(c.Mailbox.Source)
	return s != "" && s != SourceNone
}
