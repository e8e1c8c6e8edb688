package dbx

import (
	"fmt"
	"regexp"
)

// Dialect captures the few SQL differences repositories care about.
// Queries are written once with PostgreSQL-style $N placeholders.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

var dollarParam = regexp.MustCompile(`\$(\d+)`)

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return 0, fmt.Errorf("unsupported driver %q", driver)
}

// Rebind rewrites $N placeholders into the dialect's form. SQLite gets the
// numbered ?N form, which binds by position regardless of order.
func (d Dialect) Rebind(query string) string {
	if d == SQLite {
		return dollarParam.ReplaceAllString(query, "?$1")
	}
	return query
}

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}
