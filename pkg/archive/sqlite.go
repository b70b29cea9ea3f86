package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"mercator-hq/compliance/pkg/rules"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Driver is the database/sql driver name: "sqlite" or "sqlite3".
	// Default: "sqlite"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStorage implements Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (creating if needed) the database and prepares the
// schema.
func NewSQLiteStorage(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.Path == "" {
		return nil, NewStorageError(cfg.Driver, "open", errors.New("database path cannot be empty"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "archive.sqlite")

	dsn, err := sqliteDSN(cfg)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("report archive opened",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// sqliteDSN encodes WAL mode and the busy timeout in each driver's DSN
// syntax so every pooled connection gets them.
func sqliteDSN(cfg SQLiteConfig) (string, error) {
	ms := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case "sqlite":
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, ms), nil
	case "sqlite3":
		return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", cfg.Path, ms), nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return NewStorageError(s.config.Driver, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError(s.config.Driver, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(getSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError(s.config.Driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(s.config.Driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return NewStorageError(s.config.Driver, "store", errors.New("record ID is required"))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, string(record.Kind), record.SubjectID, record.Name,
		record.Score, string(record.Level), int64(record.RulesetVersion),
		record.RecordedAt.UnixNano(), []byte(record.Payload),
	)
	if err != nil {
		return NewStorageError(s.config.Driver, "store", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM reports WHERE id = ?`, id)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, NewStorageError(s.config.Driver, "get", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	record, err := scanRecord(rows)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "scan", err)
	}
	return record, nil
}

// List returns records matching the query.
func (s *SQLiteStorage) List(ctx context.Context, query *Query) ([]*Record, error) {
	if query == nil {
		query = &Query{}
	}
	where, args := buildWhereClause(query)

	q := `SELECT ` + selectColumns + ` FROM reports`
	if where != "" {
		q += " WHERE " + where
	}
	if query.OldestFirst {
		q += " ORDER BY recorded_at ASC, id ASC"
	} else {
		q += " ORDER BY recorded_at DESC, id DESC"
	}
	switch {
	case query.Limit > 0:
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", query.Limit, query.Offset)
	case query.Offset > 0:
		q += fmt.Sprintf(" LIMIT -1 OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "list", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError(s.config.Driver, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.config.Driver, "list", err)
	}
	return records, nil
}

// Count returns the number of records matching the query.
func (s *SQLiteStorage) Count(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}
	where, args := buildWhereClause(query)
	q := `SELECT COUNT(*) FROM reports`
	if where != "" {
		q += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, NewStorageError(s.config.Driver, "count", err)
	}
	return count, nil
}

// Delete removes records matching the query.
func (s *SQLiteStorage) Delete(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}
	where, args := buildWhereClause(query)
	q := `DELETE FROM reports`
	if where != "" {
		q += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "delete", err)
	}
	if deleted > 0 {
		s.logger.Debug("deleted archived reports", "count", deleted)
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.config.Driver, "close", err)
	}
	return nil
}

// buildWhereClause returns the WHERE clause (without the keyword) and its
// arguments.
func buildWhereClause(query *Query) (string, []any) {
	var conditions []string
	var args []any

	if len(query.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(query.IDs)), ", ")
		conditions = append(conditions, "id IN ("+placeholders+")")
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}
	if query.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(query.Kind))
	}
	if query.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, query.SubjectID)
	}
	if query.Level != "" {
		conditions = append(conditions, "level = ?")
		args = append(args, string(query.Level))
	}
	if query.After != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, query.After.UnixNano())
	}
	if query.Before != nil {
		conditions = append(conditions, "recorded_at < ?")
		args = append(args, query.Before.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record     Record
		kind       string
		level      string
		version    int64
		recordedAt int64
		payload    []byte
	)
	err := rows.Scan(&record.ID, &kind, &record.SubjectID, &record.Name,
		&record.Score, &level, &version, &recordedAt, &payload)
	if err != nil {
		return nil, err
	}
	record.Kind = Kind(kind)
	record.Level = rules.Level(level)
	record.RulesetVersion = uint64(version)
	record.RecordedAt = time.Unix(0, recordedAt).UTC()
	record.Payload = payload
	return &record, nil
}
