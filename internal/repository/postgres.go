// Package repository loads the postal dataset into PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jittakal/jpostcode/pkg/postal"
)

// DefaultTable is the table the dataset is loaded into.
const DefaultTable = "postal_codes"

// Config contains PostgreSQL configuration.
type Config struct {
	DSN      string
	Table    string
	MaxConns int32
}

// PostgresLoader replaces the contents of one table with the dataset.
type PostgresLoader struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPostgresLoader connects to PostgreSQL and verifies the connection.
func NewPostgresLoader(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresLoader, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository: failed to ping database: %w", err)
	}

	return NewPostgresLoaderFromPool(pool, cfg.Table, logger), nil
}

// NewPostgresLoaderFromPool wraps an existing pool.
func NewPostgresLoaderFromPool(pool *pgxpool.Pool, table string, logger *slog.Logger) *PostgresLoader {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresLoader{pool: pool, table: table, logger: logger}
}

func (l *PostgresLoader) tableIdent() string {
	return pgx.Identifier{l.table}.Sanitize()
}

func createTableSQL(table string) string {
	ident := pgx.Identifier{table}.Sanitize()

	var cols strings.Builder
	cols.WriteString("\tid BIGSERIAL PRIMARY KEY")
	for _, name := range postal.FieldNames {
		cols.WriteString(",\n\t")
		cols.WriteString(name)
		cols.WriteString(" TEXT")
		if name != postal.FieldOldPostalCode {
			cols.WriteString(" NOT NULL")
		}
	}

	index := pgx.Identifier{"idx_" + table + "_postal_code"}.Sanitize()
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);\nCREATE INDEX IF NOT EXISTS %s ON %s (postal_code);",
		ident, cols.String(), index, ident)
}

// EnsureSchema creates the table and its postal_code index if missing.
func (l *PostgresLoader) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, createTableSQL(l.table)); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

// rowValues converts a record to COPY values. An absent old code is NULL.
func rowValues(r postal.Record) []any {
	values := r.Values()
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if !r.HasOldPostalCode() {
		row[1] = nil
	}
	return row
}

// Load truncates the table and bulk-copies records in one transaction, so
// readers see either the previous snapshot or the new one.
func (l *PostgresLoader) Load(ctx context.Context, records []postal.Record) (int64, error) {
	start := time.Now()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+l.tableIdent()+" RESTART IDENTITY"); err != nil {
		return 0, fmt.Errorf("repository: failed to truncate: %w", err)
	}

	n, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{l.table},
		postal.FieldNames,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return rowValues(records[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("repository: failed to commit: %w", err)
	}

	l.logger.Info("dataset loaded into postgres",
		"table", l.table,
		"rows", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}

// Count returns the number of rows in the table.
func (l *PostgresLoader) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+l.tableIdent()).Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count rows: %w", err)
	}
	return count, nil
}

// Lookup returns the records of one postal code in load order.
func (l *PostgresLoader) Lookup(ctx context.Context, code string) ([]postal.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE postal_code = $1 ORDER BY id",
		strings.Join(postal.FieldNames, ", "), l.tableIdent())

	rows, err := l.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute lookup: %w", err)
	}
	defer rows.Close()

	var records []postal.Record
	for rows.Next() {
		var (
			r   postal.Record
			old *string
		)
		err := rows.Scan(
			&r.LocalGovernmentCode,
			&old,
			&r.PostalCode,
			&r.PrefectureNameKana,
			&r.CityNameKana,
			&r.TownNameKana,
			&r.PrefectureName,
			&r.CityName,
			&r.TownName,
			&r.MultiplePostalCodes,
			&r.KoazaNumbering,
			&r.HasChome,
			&r.MultipleTownsPerCode,
			&r.UpdateStatus,
			&r.ChangeReason,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan record: %w", err)
		}
		if old != nil {
			r.OldPostalCode = *old
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}
	return records, nil
}

// Close closes the connection pool.
func (l *PostgresLoader) Close() {
	l.pool.Close()
}
