package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ConnString renders the driver-specific connection string for db. An
// explicit DSN is returned unchanged.
func (db DBConfig) ConnString() (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}
	switch db.Driver {
	case "postgres":
		return db.postgresDSN(), nil
	case "mysql":
		return db.mysqlDSN(), nil
	case "mssql":
		return db.mssqlDSN(), nil
	case "sqlite":
		return db.Name, nil
	default:
		return "", fmt.Errorf("config: no connection string format for driver %q", db.Driver)
	}
}

// postgresDSN renders a libpq keyword/value string, which pgx parses.
func (db DBConfig) postgresDSN() string {
	var parts []string
	kv := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+pgQuote(v))
		}
	}
	kv("host", db.Host)
	if db.Port > 0 {
		kv("port", strconv.Itoa(db.Port))
	}
	kv("dbname", db.Name)
	kv("user", db.User)
	kv("password", db.Password)
	kv("sslmode", db.SSLMode)
	if secs := int(db.ConnectTimeout.Seconds()); secs > 0 {
		kv("connect_timeout", strconv.Itoa(secs))
	}
	return strings.Join(parts, " ")
}

// pgQuote single-quotes v when it is empty or contains characters that
// would otherwise end the value.
func pgQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func (db DBConfig) mysqlDSN() string {
	mc := mysql.NewConfig()
	mc.User = db.User
	mc.Passwd = db.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
	mc.DBName = db.Name
	mc.ParseTime = true
	mc.Timeout = db.ConnectTimeout
	return mc.FormatDSN()
}

func (db DBConfig) mssqlDSN() string {
	q := url.Values{}
	if db.Name != "" {
		q.Set("database", db.Name)
	}
	if secs := int(db.ConnectTimeout.Seconds()); secs > 0 {
		q.Set("connection timeout", strconv.Itoa(secs))
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(db.User, db.Password),
		Host:     net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Redacted returns ConnString with the password masked, for logging.
func (db DBConfig) Redacted() string {
	masked := db
	if masked.Password != "" {
		masked.Password = "xxxxx"
	}
	if masked.DSN != "" {
		if u, err := url.Parse(masked.DSN); err == nil && u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
			}
			return u.String()
		}
		return "(dsn)"
	}
	s, err := masked.ConnString()
	if err != nil {
		return ""
	}
	return s
}
