// Package source loads records from SQL databases.
package source

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-export-cache/record"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const (
	TextCodeUnsupportedDriver = "UNSUPPORTED_DRIVER"
	TextCodeQueryFailed       = "QUERY_FAILED"
)

// Source runs queries and turns result sets into records.
type Source struct {
	conn      bun.IConn
	db        *bun.DB
	snakeCase bool
}

// Option configures a Source.
type Option func(*Source)

// WithSnakeCaseColumns renames every column to snake_case before it becomes
// a field name.
func WithSnakeCaseColumns() Option {
	return func(s *Source) {
		s.snakeCase = true
	}
}

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{DriverPostgres, DriverSQLite}
}

// Open connects to dsn with the named driver. The returned Source owns the
// connection pool and must be closed.
func Open(driver, dsn string, opts ...Option) (*Source, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, goerrors.NewValidation("invalid source",
			goerrors.FieldError{Field: "dsn", Message: "cannot be blank"},
		)
	}

	var db *bun.DB
	switch driver {
	case DriverPostgres:
		sqldb, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres connection")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite:
		sqldb, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite connection")
		}
		// every connection to ":memory:" is its own database
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, goerrors.New("unsupported driver "+driver, goerrors.CategoryBadInput).
			WithTextCode(TextCodeUnsupportedDriver).
			WithMetadata(map[string]any{"driver": driver, "supported": Drivers()})
	}

	s := New(db, opts...)
	s.db = db
	return s, nil
}

// New wraps an existing connection. Close is a no-op for sources built this
// way.
func New(conn bun.IConn, opts ...Option) *Source {
	s := &Source{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conn returns the underlying connection.
func (s *Source) Conn() bun.IConn { return s.conn }

// Ping checks that the database is reachable.
func (s *Source) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.PingContext(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "database unreachable")
	}
	return nil
}

// Close releases the connection pool opened by Open.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load runs query and returns one record per row with fields in column
// order. Placeholders use "?" for every driver.
func (s *Source) Load(ctx context.Context, query string, args ...any) ([]record.Record, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError(err, query)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, queryError(err, query)
	}
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		if s.snakeCase {
			if snake := toSnake(names[i]); snake != "" {
				names[i] = snake
			}
		}
	}

	out := []record.Record{}
	dest := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError(err, query)
		}
		fields := make([]record.Field, 0, len(dest))
		for i, raw := range dest {
			v, err := convert(raw, types[i].DatabaseTypeName())
			if err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unsupported column value").
					WithTextCode(record.TextCodeInvalidRecord).
					WithMetadata(map[string]any{"row": len(out), "column": names[i]})
			}
			fields = append(fields, record.F(names[i], v))
		}
		out = append(out, record.New(fields...))
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, query)
	}
	return out, nil
}

func convert(raw any, dbType string) (record.Value, error) {
	if b, ok := raw.([]byte); ok {
		base, _, _ := strings.Cut(strings.ToUpper(dbType), "(")
		switch base {
		case "NUMERIC", "DECIMAL":
			return record.FromAny(json.Number(b))
		}
		return record.String(string(b)), nil
	}
	return record.FromAny(raw)
}

func queryError(err error, query string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "query failed").
		WithTextCode(TextCodeQueryFailed).
		WithMetadata(map[string]any{"query": query})
}
