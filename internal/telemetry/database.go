package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OpenDB opens an instrumented Postgres pool whose connections all resolve
// unqualified table names in schema.
func OpenDB(ctx context.Context, dsn, schema string) (*sql.DB, error) {
	if schema != "" {
		var err error
		if dsn, err = withSearchPath(dsn, schema); err != nil {
			return nil, err
		}
	}

	db, err := otelsql.Open("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// withSearchPath adds search_path as a startup parameter, which lib/pq passes
// through to the server for every new connection.
func withSearchPath(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
