package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "POSSYNC"

const (
	AppEnvDev   = "dev"
	AppEnvLocal = "local"
	AppEnvProd  = "prod"
)

const (
	EnvAppEnv       = "POSSYNC_APP_ENV"
	EnvPort         = "POSSYNC_APP_PORT"
	EnvLogLevel     = "POSSYNC_LOG_LEVEL"
	EnvLogWarnStack = "POSSYNC_LOG_WARN_STACK"

	EnvLoyverseToken   = "POSSYNC_LOYVERSE_API_TOKEN"
	EnvLoyverseBaseURL = "POSSYNC_LOYVERSE_BASE_URL"
	EnvLoyverseTimeout = "POSSYNC_LOYVERSE_REQUEST_TIMEOUT"

	EnvSpreadsheetID = "POSSYNC_SHEETS_SPREADSHEET_ID"
	EnvSalesSheet    = "POSSYNC_SHEETS_SALES_TITLE"
	EnvStockSheet    = "POSSYNC_SHEETS_STOCK_TITLE"
	EnvLogSheet      = "POSSYNC_SHEETS_LOG_TITLE"

	EnvGCPProjectID       = "POSSYNC_GCP_PROJECT_ID"
	EnvGCPCredentialsJSON = "POSSYNC_GCP_CREDENTIALS_JSON"
	EnvGCPCredentialsFile = "POSSYNC_GOOGLE_APPLICATION_CREDENTIALS"

	EnvTimezone  = "POSSYNC_SCHEDULE_TIMEZONE"
	EnvStartHour = "POSSYNC_SCHEDULE_START_HOUR"
	EnvEndHour   = "POSSYNC_SCHEDULE_END_HOUR"

	EnvWindowPolicy   = "POSSYNC_SYNC_WINDOW_POLICY"
	EnvTrailingMonths = "POSSYNC_SYNC_TRAILING_MONTHS"
	EnvFixedStart     = "POSSYNC_SYNC_FIXED_START"
	EnvMaxAttempts    = "POSSYNC_SYNC_MAX_ATTEMPTS"
	EnvRetryDelay     = "POSSYNC_SYNC_RETRY_DELAY"
	EnvStockCollision = "POSSYNC_SYNC_STOCK_COLLISION"

	EnvTriggerSecret      = "POSSYNC_TRIGGER_SECRET"
	EnvTriggerHeader      = "POSSYNC_TRIGGER_SCHEDULER_HEADER"
	EnvTriggerHeaderValue = "POSSYNC_TRIGGER_SCHEDULER_HEADER_VALUE"
	EnvTriggerUserAgent   = "POSSYNC_TRIGGER_USER_AGENT_CONTAINS"

	EnvRedisURL  = "POSSYNC_REDIS_URL"
	EnvRedisAddr = "POSSYNC_REDIS_ADDR"

	EnvBigQueryDataset = "POSSYNC_BIGQUERY_DATASET"
	EnvBigQueryTable   = "POSSYNC_BIGQUERY_RUN_LOG_TABLE"
)

// WindowPolicy values.
const (
	WindowTrailingMonths = "trailing_months"
	WindowFixedStart     = "fixed_start"
	WindowYearToDate     = "year_to_date"
)

// StockCollision values.
const (
	StockLastWins = "last_wins"
	StockSum      = "sum"
)
