// Package config defines the configuration model for a loader run and the
// helpers that load, validate, and render it.
//
// A Config is assembled once at start-up from, in increasing precedence:
// built-in defaults, an optional YAML file, a .env file, the process
// environment, and command-line flags. It is then validated and passed by
// value to the pipeline; nothing mutates it afterwards.
//
// Example (YAML):
//
//	csv_path: fintech_sales/sales_q1.csv
//	excel_path: fintech_sales/clients.xlsx
//	clients_sheet: data
//	unmatched_policy: keep
//	db:
//	  driver: postgres
//	  host: 127.0.0.1
//	  port: 5432
//	  name: fintech_db
//	  user: postgres
//	  table: sales_fintech
package config

import "time"

// Config is the complete configuration of one run.
type Config struct {
	// Job labels metrics and log lines of this run.
	Job string `koanf:"job"`

	// CSVPath is the quarterly sales file.
	CSVPath string `koanf:"csv_path"`
	// ExcelPath is the client directory workbook.
	ExcelPath string `koanf:"excel_path"`
	// ClientsSheet names the worksheet holding the client directory.
	ClientsSheet string `koanf:"clients_sheet"`

	CSV CSVConfig `koanf:"csv"`

	// UnmatchedPolicy is one of keep, drop, fail.
	UnmatchedPolicy string `koanf:"unmatched_policy"`

	DB      DBConfig      `koanf:"db"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Report  ReportConfig  `koanf:"report"`
}

// CSVConfig tunes the sales file reader.
type CSVConfig struct {
	// Delimiter is a single character; empty means ",".
	Delimiter string `koanf:"delimiter"`
	// DateLayouts are Go time layouts tried in order for the date column.
	// Empty means the reader's built-in list.
	DateLayouts []string `koanf:"date_layouts"`
	// HeaderMap renames input headers (after normalisation) to canonical
	// column names, e.g. {"sale_date": "date"}.
	HeaderMap map[string]string `koanf:"header_map"`
}

// DBConfig describes the destination database.
type DBConfig struct {
	// Driver selects the storage backend: postgres, sqlite, mysql, mssql.
	Driver   string `koanf:"driver"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`

	// DSN, when set, is passed to the driver verbatim and the discrete
	// connection fields above are ignored.
	DSN string `koanf:"dsn"`

	// Table is the destination table, optionally schema-qualified.
	Table string `koanf:"table"`

	// ConnectTimeout bounds the initial dial. Zero means no explicit bound.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// BatchSize is the number of rows per multi-row INSERT for backends that
	// do not stream.
	BatchSize int `koanf:"batch_size"`
}

// LogConfig controls the run logger.
type LogConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `koanf:"level"`
	// Format is console or json.
	Format string `koanf:"format"`
	// Output is stdout, stderr, or a file path.
	Output string `koanf:"output"`
}

// MetricsConfig selects a metrics backend.
type MetricsConfig struct {
	// Backend is none, prometheus, or datadog.
	Backend        string `koanf:"backend"`
	PushgatewayURL string `koanf:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr"`
	// Namespace prefixes metric names for the datadog backend.
	Namespace string `koanf:"namespace"`
}

// ReportConfig tunes the summary printed at the end of a run.
type ReportConfig struct {
	// Currency is appended to monetary totals.
	Currency string `koanf:"currency"`
}

// Default values.
const (
	DefaultJob             = "salesetl"
	DefaultCSVPath         = "fintech_sales/sales_q1.csv"
	DefaultExcelPath       = "fintech_sales/clients.xlsx"
	DefaultClientsSheet    = "data"
	DefaultUnmatchedPolicy = "keep"
	DefaultDriver          = "postgres"
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 5432
	DefaultDatabase        = "fintech_db"
	DefaultUser            = "postgres"
	DefaultSSLMode         = "disable"
	DefaultTable           = "sales_fintech"
	DefaultBatchSize       = 500
	DefaultConnectTimeout  = 10 * time.Second
	DefaultCurrency        = "RUB"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Job:             DefaultJob,
		CSVPath:         DefaultCSVPath,
		ExcelPath:       DefaultExcelPath,
		ClientsSheet:    DefaultClientsSheet,
		UnmatchedPolicy: DefaultUnmatchedPolicy,
		DB: DBConfig{
			Driver:         DefaultDriver,
			Host:           DefaultHost,
			Port:           DefaultPort,
			Name:           DefaultDatabase,
			User:           DefaultUser,
			SSLMode:        DefaultSSLMode,
			Table:          DefaultTable,
			ConnectTimeout: DefaultConnectTimeout,
			BatchSize:      DefaultBatchSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Metrics: MetricsConfig{Backend: "none"},
		Report:  ReportConfig{Currency: DefaultCurrency},
	}
}

// defaultMap is Defaults in the flat dotted form koanf's confmap expects.
func defaultMap() map[string]any {
	d := Defaults()
	return map[string]any{
		"job":                d.Job,
		"csv_path":           d.CSVPath,
		"excel_path":         d.ExcelPath,
		"clients_sheet":      d.ClientsSheet,
		"unmatched_policy":   d.UnmatchedPolicy,
		"db.driver":          d.DB.Driver,
		"db.host":            d.DB.Host,
		"db.port":            d.DB.Port,
		"db.name":            d.DB.Name,
		"db.user":            d.DB.User,
		"db.sslmode":         d.DB.SSLMode,
		"db.table":           d.DB.Table,
		"db.connect_timeout": d.DB.ConnectTimeout.String(),
		"db.batch_size":      d.DB.BatchSize,
		"log.level":          d.Log.Level,
		"log.format":         d.Log.Format,
		"log.output":         d.Log.Output,
		"metrics.backend":    d.Metrics.Backend,
		"report.currency":    d.Report.Currency,
	}
}
