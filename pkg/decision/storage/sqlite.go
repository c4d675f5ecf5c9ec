package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mercator-hq/callisto/pkg/decision"
)

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables write-ahead logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/decisions.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements the decision Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, applies pragmas and creates the
// schema.
func NewSQLiteStore(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "decision.storage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite decision store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return decision.NewStorageError("sqlite", "enable_wal", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return decision.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return decision.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return decision.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return decision.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return decision.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store persists a record.
func (s *SQLiteStore) Store(ctx context.Context, record *decision.Record) error {
	paths, _ := json.Marshal(record.Paths)
	witnesses, _ := json.Marshal(record.Witnesses)

	var errorVal any
	if record.Error != "" {
		errorVal = record.Error
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, time, policy, registry_version, document_hash,
			outcome, residual, paths, witnesses, duration_us, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Time.UTC(), record.Policy, record.RegistryVersion, record.DocumentHash,
		record.Outcome, record.Residual, string(paths), string(witnesses),
		record.Duration.Microseconds(), errorVal,
	)
	if err != nil {
		return decision.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching the filters.
func (s *SQLiteStore) Query(ctx context.Context, query *decision.Query) ([]*decision.Record, error) {
	where, args := buildWhereClause(query)

	sqlQuery := "SELECT id, time, policy, registry_version, document_hash, outcome, residual, paths, witnesses, duration_us, error FROM decisions"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	order := "DESC"
	if query != nil && query.SortOrder == "asc" {
		order = "ASC"
	}
	sqlQuery += " ORDER BY time " + order

	// SQLite needs a LIMIT clause to accept OFFSET; -1 means unbounded.
	if query != nil && (query.Limit > 0 || query.Offset > 0) {
		limit := query.Limit
		if limit <= 0 {
			limit = -1
		}
		sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
		if query.Offset > 0 {
			sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*decision.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, decision.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, decision.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStore) Count(ctx context.Context, query *decision.Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM decisions"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, decision.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes matching records.
func (s *SQLiteStore) Delete(ctx context.Context, query *decision.Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "DELETE FROM decisions"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return decision.NewStorageError("sqlite", "close", err)
	}
	return nil
}

func buildWhereClause(query *decision.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "time >= ?")
		args = append(args, query.StartTime.UTC())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "time <= ?")
		args = append(args, query.EndTime.UTC())
	}
	if query.Policy != "" {
		conditions = append(conditions, "policy = ?")
		args = append(args, query.Policy)
	}
	if query.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, query.Outcome)
	}

	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*decision.Record, error) {
	var record decision.Record
	var paths, witnesses string
	var durationUs int64
	var errorVal sql.NullString

	err := rows.Scan(
		&record.ID, &record.Time, &record.Policy, &record.RegistryVersion, &record.DocumentHash,
		&record.Outcome, &record.Residual, &paths, &witnesses, &durationUs, &errorVal,
	)
	if err != nil {
		return nil, err
	}

	if errorVal.Valid {
		record.Error = errorVal.String
	}
	if paths != "" && paths != "null" {
		if err := json.Unmarshal([]byte(paths), &record.Paths); err != nil {
			return nil, err
		}
	}
	if witnesses != "" && witnesses != "null" {
		if err := json.Unmarshal([]byte(witnesses), &record.Witnesses); err != nil {
			return nil, err
		}
	}
	record.Duration = time.Duration(durationUs) * time.Microsecond
	return &record, nil
}
