package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ストレージドライバ
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// 祝日プロバイダ
const (
	HolidayProviderCalendarific = "calendarific"
	HolidayProviderNone         = "none"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Holiday      HolidayConfig      `yaml:"holiday"`
	Notification NotificationConfig `yaml:"notification"`
	Logger       LoggerConfig       `yaml:"logger"`
}

// ServerConfig は gRPC サーバーに関する設定です。MetricsAddr が空の場合 /metrics は公開しません。
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// StorageConfig は退職申請の保存先を選択します。
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	User                string        `yaml:"user"`
	Password            string        `yaml:"password"`
	Name                string        `yaml:"name"`
	SSLMode             string        `yaml:"ssl_mode"`
	ApplicationName     string        `yaml:"application_name"`
	MaxOpenConns        int           `yaml:"max_open_conns"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	ConnMaxLifetime     time.Duration `yaml:"-"`
	ConnMaxIdleTime     time.Duration `yaml:"-"`
	StatementTimeout    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw  string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw  string        `yaml:"conn_max_idle_time"`
	StatementTimeoutRaw string        `yaml:"statement_timeout"`
}

// HolidayConfig は祝日判定 (Calendarific) の設定です。
type HolidayConfig struct {
	Provider   string        `yaml:"provider"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Type       string        `yaml:"type"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// NotificationConfig は通知送信の設定です。
type NotificationConfig struct {
	HRAddress     string     `yaml:"hr_address"`
	DefaultDomain string     `yaml:"default_domain"`
	QueueSize     int        `yaml:"queue_size"`
	Workers       int        `yaml:"workers"`
	SMTP          SMTPConfig `yaml:"smtp"`
}

// SMTPConfig はメール送信サーバーの設定です。Host が空の場合、通知はログ出力のみになります。
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LoggerConfig は zap ロガーの設定です。
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
// ${VAR} 形式の参照は読み込み前に環境変数で展開されます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv は ${VAR} 形式だけを環境変数で置き換えます。それ以外の $ はそのまま残します。
func expandEnv(raw string) string {
	return envReference.ReplaceAllStringFunc(raw, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = StorageDriverPostgres
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("config: storage.driver %q is not supported", c.Storage.Driver)
	}

	if c.Storage.Driver == StorageDriverPostgres {
		if err := c.Database.validateAndNormalize(); err != nil {
			return err
		}
	}

	if err := c.Holiday.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Notification.validateAndNormalize(); err != nil {
		return err
	}

	c.Logger.normalize()

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	statementTimeout, err := parseDurationAllowEmpty(d.StatementTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: database.statement_timeout: %w", err)
	}
	d.StatementTimeout = statementTimeout

	return nil
}

func (h *HolidayConfig) validateAndNormalize() error {
	h.Provider = strings.ToLower(strings.TrimSpace(h.Provider))
	switch h.Provider {
	case "":
		h.Provider = HolidayProviderCalendarific
	case HolidayProviderCalendarific, HolidayProviderNone:
	default:
		return fmt.Errorf("config: holiday.provider %q is not supported", h.Provider)
	}

	if h.BaseURL == "" {
		h.BaseURL = "https://calendarific.com/api/v2"
	}
	if _, err := url.ParseRequestURI(h.BaseURL); err != nil {
		return fmt.Errorf("config: holiday.base_url: %w", err)
	}
	if h.Type == "" {
		h.Type = "national"
	}

	timeout, err := parseDurationAllowEmpty(h.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: holiday.timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	h.Timeout = timeout

	return nil
}

func (n *NotificationConfig) validateAndNormalize() error {
	n.HRAddress = strings.TrimSpace(n.HRAddress)
	if n.HRAddress != "" {
		if _, err := mail.ParseAddress(n.HRAddress); err != nil {
			return fmt.Errorf("config: notification.hr_address: %w", err)
		}
	}
	if n.QueueSize <= 0 {
		n.QueueSize = 100
	}
	if n.Workers <= 0 {
		n.Workers = 2
	}

	if n.SMTP.Host != "" {
		if n.SMTP.Port == 0 {
			n.SMTP.Port = 587
		}
		if n.SMTP.From == "" {
			n.SMTP.From = n.SMTP.Username
		}
		if _, err := mail.ParseAddress(n.SMTP.From); err != nil {
			return fmt.Errorf("config: notification.smtp.from: %w", err)
		}
	}

	return nil
}

func (l *LoggerConfig) normalize() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
