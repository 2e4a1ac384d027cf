package encoder

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var (
	_ encoder.Codec  = (*SQLiteEncoder)(nil)
	_ encoder.Prober = (*SQLiteEncoder)(nil)
)

const (
	sqliteDriver = "sqlite"
	sqliteTable  = "postal_codes"
	sqliteIndex  = "idx_postal_code"
)

// SQLiteEncoder writes records into a single-table SQLite database file.
// Every column is TEXT and postal_code carries a secondary index.
type SQLiteEncoder struct{}

// NewSQLiteEncoder creates a new SQLite encoder.
func NewSQLiteEncoder() *SQLiteEncoder {
	return &SQLiteEncoder{}
}

// Probe opens an in-memory database to check that the driver works.
func (e *SQLiteEncoder) Probe() error {
	db, err := sql.Open(sqliteDriver, ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open sqlite: %w", err)
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query sqlite: %w", err)
	}
	return nil
}

func createTableSQL() string {
	cols := make([]string, len(postal.FieldNames))
	for i, name := range postal.FieldNames {
		cols[i] = name + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", sqliteTable, strings.Join(cols, ", "))
}

func insertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(postal.FieldNames)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqliteTable, strings.Join(postal.FieldNames, ", "), placeholders)
}

// Encode replaces filePath with a new database holding records.
func (e *SQLiteEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove existing database: %w", err)
	}

	db, err := sql.Open(sqliteDriver, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := e.populate(db, records); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database: %w", err)
	}

	return statFile(filePath, len(records))
}

func (e *SQLiteEncoder) populate(db *sql.DB, records []postal.Record) error {
	if _, err := db.Exec(createTableSQL()); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(insertSQL())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	args := make([]interface{}, postal.FieldCount)
	for i, record := range records {
		for j, v := range record.Values() {
			args[j] = v
		}
		if !record.HasOldPostalCode() {
			args[oldPostalCodeColumn] = nil
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to close statement: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		sqliteIndex, sqliteTable, postal.FieldPostalCode)); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Decode reads every row of the postal_codes table in insertion order.
func (e *SQLiteEncoder) Decode(filePath string) ([]postal.Record, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}

	db, err := sql.Open(sqliteDriver, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
		strings.Join(postal.FieldNames, ", "), sqliteTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []postal.Record
	cols := make([]sql.NullString, postal.FieldCount)
	dest := make([]interface{}, postal.FieldCount)
	for i := range cols {
		dest[i] = &cols[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values := make([]string, postal.FieldCount)
		for i, c := range cols {
			values[i] = c.String
		}
		rec, _ := postal.FromValues(values)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return records, nil
}

// Format returns the file format.
func (e *SQLiteEncoder) Format() postal.FileFormat {
	return postal.FormatSQLite
}

// FileExtension returns the file extension.
func (e *SQLiteEncoder) FileExtension() string {
	return ".db"
}
