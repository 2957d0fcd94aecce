package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const fixedStartLayout = "2006-01-02"

type Config struct {
	App      AppConfig
	Loyverse LoyverseConfig
	Sheets   SheetsConfig
	GCP      GCPConfig
	Schedule ScheduleConfig
	Sync     SyncConfig
	Trigger  TriggerConfig
	Cron     CronConfig
	Redis    RedisConfig
	BigQuery BigQueryConfig
}

// Load reads the process environment. A missing or invalid required value is
// returned as an error before anything touches the network.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field rules and the cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if err := c.GCP.ensureCredentials(); err != nil {
		return err
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	if c.Sync.WindowPolicy == WindowFixedStart {
		if _, err := c.Sync.FixedStartDate(); err != nil {
			return err
		}
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"POSSYNC_APP_ENV" default:"local"`
	Port         string `envconfig:"POSSYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"POSSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, AppEnvLocal)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type LoyverseConfig struct {
	APIToken       string        `envconfig:"POSSYNC_LOYVERSE_API_TOKEN" required:"true" validate:"required"`
	BaseURL        string        `envconfig:"POSSYNC_LOYVERSE_BASE_URL" default:"https://api.loyverse.com/v1.0" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"POSSYNC_LOYVERSE_REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
}

type SheetsConfig struct {
	SpreadsheetID string `envconfig:"POSSYNC_SHEETS_SPREADSHEET_ID" required:"true" validate:"required"`
	SalesTitle    string `envconfig:"POSSYNC_SHEETS_SALES_TITLE" default:"Sales" validate:"required"`
	StockTitle    string `envconfig:"POSSYNC_SHEETS_STOCK_TITLE" default:"Stock" validate:"required"`
	LogTitle      string `envconfig:"POSSYNC_SHEETS_LOG_TITLE" default:"Logs" validate:"required"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"POSSYNC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"POSSYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"POSSYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

func (g GCPConfig) ensureCredentials() error {
	if strings.TrimSpace(g.CredentialsJSON) == "" && strings.TrimSpace(g.ApplicationCredentials) == "" {
		return fmt.Errorf("either %s or %s is required", EnvGCPCredentialsJSON, EnvGCPCredentialsFile)
	}
	return nil
}

type ScheduleConfig struct {
	Timezone  string `envconfig:"POSSYNC_SCHEDULE_TIMEZONE" default:"Asia/Bangkok" validate:"required"`
	StartHour int    `envconfig:"POSSYNC_SCHEDULE_START_HOUR" default:"13" validate:"min=0,max=23"`
	EndHour   int    `envconfig:"POSSYNC_SCHEDULE_END_HOUR" default:"1" validate:"min=0,max=23"`
}

// Location resolves the configured IANA timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(s.Timezone))
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type SyncConfig struct {
	WindowPolicy   string        `envconfig:"POSSYNC_SYNC_WINDOW_POLICY" default:"trailing_months" validate:"oneof=trailing_months fixed_start year_to_date"`
	TrailingMonths int           `envconfig:"POSSYNC_SYNC_TRAILING_MONTHS" default:"1" validate:"min=1,max=36"`
	FixedStart     string        `envconfig:"POSSYNC_SYNC_FIXED_START"`
	MaxAttempts    int           `envconfig:"POSSYNC_SYNC_MAX_ATTEMPTS" default:"3" validate:"min=1"`
	RetryDelay     time.Duration `envconfig:"POSSYNC_SYNC_RETRY_DELAY" default:"5m" validate:"gte=0"`
	StockCollision string        `envconfig:"POSSYNC_SYNC_STOCK_COLLISION" default:"last_wins" validate:"oneof=last_wins sum"`
}

var errFixedStartRequired = errors.New(EnvFixedStart + " is required when the window policy is fixed_start")

// FixedStartDate parses FixedStart as a calendar date.
func (s SyncConfig) FixedStartDate() (time.Time, error) {
	raw := strings.TrimSpace(s.FixedStart)
	if raw == "" {
		return time.Time{}, errFixedStartRequired
	}
	t, err := time.Parse(fixedStartLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", EnvFixedStart, err)
	}
	return t, nil
}

type TriggerConfig struct {
	Secret               string `envconfig:"POSSYNC_TRIGGER_SECRET"`
	SchedulerHeader      string `envconfig:"POSSYNC_TRIGGER_SCHEDULER_HEADER" default:"X-Vercel-Cron"`
	SchedulerHeaderValue string `envconfig:"POSSYNC_TRIGGER_SCHEDULER_HEADER_VALUE" default:"1"`
	UserAgentContains    string `envconfig:"POSSYNC_TRIGGER_USER_AGENT_CONTAINS"`
	RateLimitPerMinute   int    `envconfig:"POSSYNC_TRIGGER_RATE_LIMIT_PER_MINUTE" default:"6" validate:"min=1"`
	MaxAttempts          int    `envconfig:"POSSYNC_TRIGGER_MAX_ATTEMPTS" default:"1" validate:"min=1"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"POSSYNC_CRON_INTERVAL" default:"1h" validate:"gt=0"`
	LockTTL  time.Duration `envconfig:"POSSYNC_CRON_LOCK_TTL" default:"2h" validate:"gt=0"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POSSYNC_REDIS_URL"`
	Address      string        `envconfig:"POSSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"POSSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSSYNC_REDIS_POOL_SIZE" default:"4"`
	DialTimeout  time.Duration `envconfig:"POSSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type BigQueryConfig struct {
	Dataset     string `envconfig:"POSSYNC_BIGQUERY_DATASET"`
	RunLogTable string `envconfig:"POSSYNC_BIGQUERY_RUN_LOG_TABLE" default:"sync_runs"`
}

// Enabled reports whether the run log should be mirrored to BigQuery.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != ""
}
