package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"salesetl/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to the operator but does not block a run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is the dotted config key (e.g. "db.port"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Drivers lists the supported values of db.driver.
var Drivers = []string{"postgres", "sqlite", "mysql", "mssql"}

// maxParams is the bind parameter ceiling per statement for backends that
// insert with multi-row VALUES lists.
var maxParams = map[string]int{
	"sqlite": 32766,
	"mysql":  65535,
}

// salesColumns is the number of bound values per inserted row.
const salesColumns = 8

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate performs static checks over c and returns every finding. It does
// not touch the filesystem or the network; missing inputs are detected when
// the run starts.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, newIssue(sev, path, format, args...))
	}

	if strings.TrimSpace(c.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}
	if strings.TrimSpace(c.CSVPath) == "" {
		add(SeverityError, "csv_path", "csv_path must not be empty")
	}
	if strings.TrimSpace(c.ExcelPath) == "" {
		add(SeverityError, "excel_path", "excel_path must not be empty")
	}
	if strings.TrimSpace(c.ClientsSheet) == "" {
		add(SeverityError, "clients_sheet", "clients_sheet must not be empty")
	}
	if _, err := transformer.ParseUnmatchedPolicy(c.UnmatchedPolicy); err != nil {
		add(SeverityError, "unmatched_policy", "%v", err)
	}
	if d := c.CSV.Delimiter; d != "" && utf8.RuneCountInString(d) != 1 {
		add(SeverityError, "csv.delimiter", "delimiter must be a single character, got %q", d)
	}

	issues = append(issues, validateDB(c.DB)...)
	issues = append(issues, validateLog(c.Log)...)
	issues = append(issues, validateMetrics(c.Metrics)...)

	if strings.TrimSpace(c.Report.Currency) == "" {
		add(SeverityWarning, "report.currency", "currency is empty; revenue is printed without a unit")
	}
	return issues
}

func validateDB(db DBConfig) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, newIssue(sev, path, format, args...))
	}

	known := false
	for _, d := range Drivers {
		if db.Driver == d {
			known = true
		}
	}
	if !known {
		add(SeverityError, "db.driver", "unknown driver %q (want one of %s)", db.Driver, strings.Join(Drivers, ", "))
		return issues
	}

	if !tableName.MatchString(db.Table) {
		add(SeverityError, "db.table", "table %q is not a plain or schema-qualified identifier", db.Table)
	}
	if db.BatchSize <= 0 {
		add(SeverityError, "db.batch_size", "batch_size must be positive, got %d", db.BatchSize)
	} else if limit, ok := maxParams[db.Driver]; ok && db.BatchSize*salesColumns > limit {
		add(SeverityError, "db.batch_size", "batch_size %d exceeds the %s limit of %d rows per statement", db.BatchSize, db.Driver, limit/salesColumns)
	}
	if db.ConnectTimeout < 0 {
		add(SeverityError, "db.connect_timeout", "connect_timeout must not be negative")
	}

	if db.DSN != "" {
		return issues
	}

	if db.Driver == "sqlite" {
		if strings.TrimSpace(db.Name) == "" {
			add(SeverityError, "db.name", "sqlite needs a database file in db.name or a db.dsn")
		}
		return issues
	}

	if strings.TrimSpace(db.Host) == "" {
		add(SeverityError, "db.host", "host must not be empty")
	}
	if db.Port <= 0 || db.Port > 65535 {
		add(SeverityError, "db.port", "port %d out of range", db.Port)
	}
	if strings.TrimSpace(db.Name) == "" {
		add(SeverityError, "db.name", "database name must not be empty")
	}
	if strings.TrimSpace(db.User) == "" {
		add(SeverityError, "db.user", "user must not be empty")
	}
	if db.Password == "" {
		add(SeverityWarning, "db.password", "no password configured; set DB_PASSWORD or add it to the .env file")
	}
	if db.Driver == "postgres" {
		switch db.SSLMode {
		case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			add(SeverityError, "db.sslmode", "unknown sslmode %q", db.SSLMode)
		}
	}
	return issues
}

func validateLog(l LogConfig) []Issue {
	var issues []Issue
	if _, err := zerolog.ParseLevel(strings.ToLower(l.Level)); err != nil || l.Level == "" {
		issues = append(issues, newIssue(SeverityError, "log.level", "unknown log level %q", l.Level))
	}
	switch l.Format {
	case "console", "json":
	default:
		issues = append(issues, newIssue(SeverityError, "log.format", "log format must be console or json, got %q", l.Format))
	}
	if strings.TrimSpace(l.Output) == "" {
		issues = append(issues, newIssue(SeverityError, "log.output", "log output must not be empty"))
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prometheus":
		if m.PushgatewayURL == "" {
			issues = append(issues, newIssue(SeverityError, "metrics.pushgateway_url", "prometheus backend requires a Pushgateway URL"))
		} else if u, err := url.Parse(m.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, newIssue(SeverityError, "metrics.pushgateway_url", "invalid URL %q", m.PushgatewayURL))
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, newIssue(SeverityError, "metrics.datadog_addr", "datadog backend requires a DogStatsD address"))
		}
	default:
		issues = append(issues, newIssue(SeverityError, "metrics.backend", "unknown metrics backend %q (want none, prometheus, datadog)", m.Backend))
	}
	return issues
}

func newIssue(sev IssueSeverity, path, format string, args ...any) Issue {
	return Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Err joins the error-severity issues into one error, or returns nil when
// there are none. Warnings are ignored.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}
