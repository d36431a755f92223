package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables that carry configuration.
// SALESETL_CSV_PATH sets csv_path; a double underscore separates sections,
// so SALESETL_DB__HOST sets db.host.
const EnvPrefix = "SALESETL_"

// DefaultEnvFile is read when LoadOptions.EnvFile is empty. It may be absent.
const DefaultEnvFile = ".env"

// configFileNames are looked up in the working directory when no file is
// named explicitly.
var configFileNames = []string{"salesetl.yaml", "salesetl.yml"}

// envKeys maps unprefixed variables understood for compatibility with
// existing deployments.
var envKeys = map[string]string{
	"DB_PASSWORD": "db.password",
	"DB_HOST":     "db.host",
	"DB_PORT":     "db.port",
	"DB_NAME":     "db.name",
	"DB_USER":     "db.user",
}

// flagKeys maps flag names defined by RegisterFlags to config keys.
var flagKeys = map[string]string{
	"job":                "job",
	"csv-path":           "csv_path",
	"excel-path":         "excel_path",
	"clients-sheet":      "clients_sheet",
	"csv-delimiter":      "csv.delimiter",
	"unmatched-policy":   "unmatched_policy",
	"db-driver":          "db.driver",
	"db-host":            "db.host",
	"db-port":            "db.port",
	"db-name":            "db.name",
	"db-user":            "db.user",
	"db-sslmode":         "db.sslmode",
	"db-table":           "db.table",
	"db-dsn":             "db.dsn",
	"db-connect-timeout": "db.connect_timeout",
	"db-batch-size":      "db.batch_size",
	"log-level":          "log.level",
	"log-format":         "log.format",
	"log-output":         "log.output",
	"metrics-backend":    "metrics.backend",
	"pushgateway-url":    "metrics.pushgateway_url",
	"datadog-addr":       "metrics.datadog_addr",
	"currency":           "report.currency",
}

// RegisterFlags defines the configuration flags on fs. Only flags the user
// actually sets take part in Load; their defaults here are for help output.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("job", d.Job, "job name used in logs and metrics")
	fs.String("csv-path", d.CSVPath, "quarterly sales CSV file")
	fs.String("excel-path", d.ExcelPath, "client directory workbook (.xlsx)")
	fs.String("clients-sheet", d.ClientsSheet, "worksheet holding the client directory")
	fs.String("csv-delimiter", ",", "sales CSV field delimiter")
	fs.String("unmatched-policy", d.UnmatchedPolicy, "sales without a known client: keep, drop, or fail")
	fs.String("db-driver", d.DB.Driver, "database backend: postgres, sqlite, mysql, mssql")
	fs.String("db-host", d.DB.Host, "database host")
	fs.Int("db-port", d.DB.Port, "database port")
	fs.String("db-name", d.DB.Name, "database name (file path for sqlite)")
	fs.String("db-user", d.DB.User, "database user (password from DB_PASSWORD)")
	fs.String("db-sslmode", d.DB.SSLMode, "postgres sslmode")
	fs.String("db-table", d.DB.Table, "destination table")
	fs.String("db-dsn", "", "full driver DSN; overrides the discrete db-* settings")
	fs.Duration("db-connect-timeout", d.DB.ConnectTimeout, "bound on the initial database dial")
	fs.Int("db-batch-size", d.DB.BatchSize, "rows per INSERT statement")
	fs.String("log-level", d.Log.Level, "log level: trace, debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: console or json")
	fs.String("log-output", d.Log.Output, "log destination: stdout, stderr, or a file path")
	fs.String("metrics-backend", d.Metrics.Backend, "metrics backend: none, prometheus, datadog")
	fs.String("pushgateway-url", "", "Prometheus Pushgateway URL")
	fs.String("datadog-addr", "", "DogStatsD address")
	fs.String("currency", d.Report.Currency, "currency label printed next to revenue")
}

// LoadOptions names the sources Load reads besides defaults and the
// process environment.
type LoadOptions struct {
	// File is a YAML config file. Empty means salesetl.yaml (or .yml) in the
	// working directory, if present.
	File string
	// EnvFile is a dotenv file. Empty means DefaultEnvFile, if present.
	// Variables already set in the environment win over the file.
	EnvFile string
	// Flags, when non-nil, is a flag set prepared with RegisterFlags.
	Flags *pflag.FlagSet
}

// Load assembles a Config from defaults < YAML file < .env < environment <
// flags. It does not validate; call Validate on the result.
func Load(opts LoadOptions) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(opts.File); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return Config{}, err
	}
	if len(dotenv) > 0 {
		if err := k.Load(confmap.Provider(dotenv, "."), nil); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", EnvKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if opts.Flags != nil {
		fs := opts.Flags
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// EnvKey maps an environment variable name to a config key, or returns ""
// when the variable is not configuration.
func EnvKey(name string) string {
	if k, ok := envKeys[name]; ok {
		return k
	}
	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}
	k := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(k, "__", ".")
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// readEnvFile parses a dotenv file into flat config keys. Variables that are
// already present in the process environment are skipped so the real
// environment keeps precedence.
func readEnvFile(path string) (map[string]any, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	out := make(map[string]any, len(vars))
	for name, v := range vars {
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if key := EnvKey(name); key != "" {
			out[key] = v
		}
	}
	return out, nil
}
