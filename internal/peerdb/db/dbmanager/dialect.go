package dbmanager

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Dialect captures what differs between the supported engines. Queries are written
// with '?' placeholders and unquoted identifiers; the dialect adapts them.
type Dialect interface {
	Name() string
	DriverName() string
	// Rebind converts '?' placeholders to the engine's native form.
	Rebind(query string) string
	// Quote quotes an identifier such as the reserved word "user".
	Quote(ident string) string
	// SessionParams returns the statements run on every borrowed connection.
	SessionParams(statementTimeout time.Duration) []string
	// IsDuplicateKey reports whether err is a primary key or unique violation.
	IsDuplicateKey(err error) bool
}

const (
	MySQL      = "mysql"
	PostgreSQL = "postgresql"
	SQLite     = "sqlite"
)

const defaultMySQLPort = "3306"

// Target is a parsed connection locator.
type Target struct {
	Dialect Dialect
	DSN     string
	// File is the database file for file-backed engines; empty for networked ones.
	File string
	// Memory marks a sqlite in-memory database. Each connection would see its own
	// database, so the pool keeps exactly one.
	Memory bool
}

// DialectByName returns the dialect with the given name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case MySQL:
		return mysqlDialect{}, nil
	case PostgreSQL, "postgres":
		return postgresDialect{}, nil
	case SQLite, "sqlite3":
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database dialect: %q", name)
}

// ParseTarget turns a connection locator into a driver DSN. Locators without a scheme
// are treated as sqlite database files.
func ParseTarget(locator string) (Target, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Target{}, fmt.Errorf("empty connection locator")
	}
	if !strings.Contains(locator, "://") {
		return sqliteTarget(locator, "")
	}

	u, err := url.Parse(locator)
	if err != nil {
		return Target{}, errors.Wrap(err, "invalid connection locator")
	}

	switch strings.ToLower(u.Scheme) {
	case "mysql":
		dsn, err := mysqlDSN(u)
		if err != nil {
			return Target{}, err
		}
		return Target{Dialect: mysqlDialect{}, DSN: dsn}, nil
	case "postgres", "postgresql":
		if u.Host == "" && u.Query().Get("host") == "" {
			return Target{}, fmt.Errorf("postgres locator has no host")
		}
		return Target{Dialect: postgresDialect{}, DSN: locator}, nil
	case "sqlite", "sqlite3", "file":
		return sqliteTarget(u.Host+u.Path, u.RawQuery)
	}
	return Target{}, fmt.Errorf("unsupported database scheme: %q", u.Scheme)
}

func mysqlDSN(u *url.URL) (string, error) {
	if u.Host == "" {
		return "", fmt.Errorf("mysql locator has no host")
	}
	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		cfg.Addr = net.JoinHostPort(u.Hostname(), defaultMySQLPort)
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")

	dsn := cfg.FormatDSN()
	if u.RawQuery == "" {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	parsed, err := mysql.ParseDSN(dsn + sep + u.RawQuery)
	if err != nil {
		return "", errors.Wrap(err, "invalid mysql parameters")
	}
	return parsed.FormatDSN(), nil
}

// sqliteMemory is the sqlite name for a private in-memory database.
const sqliteMemory = ":memory:"

func sqliteTarget(path, rawQuery string) (Target, error) {
	if path == "" {
		return Target{}, fmt.Errorf("sqlite locator has no file path")
	}
	memory := path == sqliteMemory
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_txlock", "immediate")
	if !memory {
		params.Set("_journal_mode", "WAL")
	}
	if rawQuery != "" {
		extra, err := url.ParseQuery(rawQuery)
		if err != nil {
			return Target{}, errors.Wrap(err, "invalid sqlite parameters")
		}
		for k, v := range extra {
			params[k] = v
		}
	}

	// SQLite parses the DSN as a URI, so '?', '#' and '%' in the path are escaped.
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + params.Encode()
	if memory {
		return Target{Dialect: sqliteDialect{}, DSN: dsn, Memory: true}, nil
	}
	return Target{Dialect: sqliteDialect{}, DSN: dsn, File: path}, nil
}

// mysql

type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return MySQL }
func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) Rebind(query string) string { return query }

func (mysqlDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// SessionParams bounds InnoDB row lock waits only. MySQL has no session setting that
// limits every statement's run time; query_timeout covers that client side.
func (mysqlDialect) SessionParams(statementTimeout time.Duration) []string {
	if statementTimeout <= 0 {
		return nil
	}
	secs := int(statementTimeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return []string{"SET SESSION innodb_lock_wait_timeout = " + strconv.Itoa(secs)}
}

func (mysqlDialect) IsDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

// postgresql

type postgresDialect struct{}

func (postgresDialect) Name() string       { return PostgreSQL }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) Quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (postgresDialect) SessionParams(statementTimeout time.Duration) []string {
	if statementTimeout <= 0 {
		return nil
	}
	value := pq.QuoteLiteral(strconv.FormatInt(statementTimeout.Milliseconds(), 10) + "ms")
	params := []string{"statement_timeout", "lock_timeout", "idle_in_transaction_session_timeout"}
	stmts := make([]string, 0, len(params))
	for _, p := range params {
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", pq.QuoteIdentifier(p), value))
	}
	return stmts
}

func (postgresDialect) IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" // unique_violation
}

// sqlite

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return SQLite }
func (sqliteDialect) DriverName() string { return "sqlite3" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) SessionParams(statementTimeout time.Duration) []string {
	if statementTimeout <= 0 {
		return nil
	}
	return []string{"PRAGMA busy_timeout = " + strconv.FormatInt(statementTimeout.Milliseconds(), 10)}
}

func (sqliteDialect) IsDuplicateKey(err error) bool {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) || sqErr.Code != sqlite3.ErrConstraint {
		return false
	}
	return sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
