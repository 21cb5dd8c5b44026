package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/alerts"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/schedule"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/source"
)

// Config holds all campaign refresh configuration.
type Config struct {
	Database        DatabaseConfig `mapstructure:"database"`
	Email           EmailConfig    `mapstructure:"email"`
	RefreshSchedule ScheduleConfig `mapstructure:"refresh_schedule"`
	Paths           PathsConfig    `mapstructure:"paths"`
	Storage         StorageConfig  `mapstructure:"storage"`
	Logging         LoggingConfig  `mapstructure:"logging"`
	Server          ServerConfig   `mapstructure:"server"`
	Lookback        LookbackConfig `mapstructure:"lookback"`
	Alerts          AlertsConfig   `mapstructure:"alerts"`

	// File is the config file the values were read from, or "" when the
	// built-in defaults are in use.
	File string `mapstructure:"-"`
}

// DatabaseConfig defines the upstream campaign database.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Source converts the section into gateway settings.
func (d DatabaseConfig) Source() source.Config {
	return source.Config{
		Driver:   d.Driver,
		Host:     d.Host,
		Port:     d.Port,
		Username: d.Username,
		Password: d.Password,
		Database: d.Database,
		SSLMode:  d.SSLMode,
	}
}

// EmailConfig defines the SMTP account alerts are sent from.
type EmailConfig struct {
	SMTPServer string   `mapstructure:"smtp_server"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
}

// Sender returns From, or the SMTP username when From is unset.
func (e EmailConfig) Sender() string {
	if e.From != "" {
		return e.From
	}
	return e.Username
}

// SMTP converts the section into mailer settings.
func (e EmailConfig) SMTP() alerts.SMTPConfig {
	return alerts.SMTPConfig{
		Server:   e.SMTPServer,
		Port:     e.SMTPPort,
		Username: e.Username,
		Password: e.Password,
	}
}

// ScheduleConfig defines when refreshes run.
type ScheduleConfig struct {
	HourlyDuringCampaigns bool   `mapstructure:"hourly_during_campaigns"`
	DailySummary          string `mapstructure:"daily_summary"`
	WeeklyReport          string `mapstructure:"weekly_report"`
}

// Schedule converts the section into scheduler settings.
func (s ScheduleConfig) Schedule() schedule.Config {
	return schedule.Config{
		HourlyDuringCampaigns: s.HourlyDuringCampaigns,
		DailySummary:          s.DailySummary,
		WeeklyReport:          s.WeeklyReport,
	}
}

// PathsConfig defines where artifacts are written.
type PathsConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	LogDir    string `mapstructure:"log_dir"`
	ReportDir string `mapstructure:"report_dir"`
}

// StorageConfig defines the local run history database.
type StorageConfig struct {
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig defines the status API. An empty Listen disables it.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LookbackConfig defines the extraction windows.
type LookbackConfig struct {
	CampaignMonths int `mapstructure:"campaign_months"`
	BudgetYears    int `mapstructure:"budget_years"`
}

// AlertsConfig defines alert rules and secondary integrations.
type AlertsConfig struct {
	RulesFile string        `mapstructure:"rules_file"`
	Slack     SlackConfig   `mapstructure:"slack"`
	Webhook   WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// EnvPrefix is the prefix of environment overrides, e.g. CAMPAIGN_DATABASE_HOST.
const EnvPrefix = "CAMPAIGN"

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "marketing_user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "marketing_db")
	v.SetDefault("database.sslmode", "")

	v.SetDefault("email.smtp_server", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "reports@company.com")
	v.SetDefault("email.password", "app_password")
	v.SetDefault("email.from", "")
	v.SetDefault("email.recipients", []string{"marketing@company.com", "manager@company.com"})

	v.SetDefault("refresh_schedule.hourly_during_campaigns", true)
	v.SetDefault("refresh_schedule.daily_summary", "08:00")
	v.SetDefault("refresh_schedule.weekly_report", "Monday 09:00")

	v.SetDefault("paths.data_dir", "data/processed")
	v.SetDefault("paths.log_dir", "logs")
	v.SetDefault("paths.report_dir", "reports")
	v.SetDefault("storage.path", "data/refresh_history.db")
	v.SetDefault("storage.retention_days", 90)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "data_refresh.log")
	v.SetDefault("server.listen", "")
	v.SetDefault("lookback.campaign_months", 6)
	v.SetDefault("lookback.budget_years", 1)

	v.SetDefault("alerts.rules_file", "")
	v.SetDefault("alerts.slack.enabled", false)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#marketing-alerts")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration with environment overrides applied.
func Default() *Config {
	var cfg Config
	// Defaults always decode.
	_ = newViper().Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from cfgFile, or from ./config/database_config.*
// or ./database_config.* when cfgFile is empty. A missing file is not an
// error. A file that cannot be parsed yields Default() together with a
// config error so the caller can log the fallback. The result is never nil
// and its File names the file actually applied.
func Load(cfgFile string) (*Config, error) {
	v := newViper()

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath("config")
		v.AddConfigPath(".")
		v.SetConfigName("database_config")
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Default(), model.NewError(model.KindConfig, "read config", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), model.NewError(model.KindConfig, "unmarshal config", err)
	}
	if err := cfg.validate(); err != nil {
		return Default(), model.NewError(model.KindConfig, "validate config", err)
	}

	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Driver != source.DriverSQLite && (c.Database.Port <= 0 || c.Database.Port > 65535) {
		return fmt.Errorf("database.port %d out of range", c.Database.Port)
	}
	if c.Lookback.CampaignMonths < 0 || c.Lookback.BudgetYears < 0 {
		return errors.New("lookback windows must not be negative")
	}
	return nil
}
