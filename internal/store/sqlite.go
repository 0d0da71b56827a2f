package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"movup/internal/config"
	"movup/internal/services"
)

//go:embed schema.sql
var sqliteSchema string

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timestampLayout is fixed width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = "id, user_id, created_at, payload, payload_json"

// SQLiteStore is the default backend, one database file under data_dir.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes or connects to the SQLite database.
func OpenSQLite(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (move %s aside to start fresh)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Create inserts a new record with a binary payload.
func (s *SQLiteStore) Create(ctx context.Context, userID int64, payload []byte) (Record, error) {
	if err := validateOwner("create", userID); err != nil {
		return Record{}, err
	}
	if len(payload) == 0 {
		return Record{}, services.Wrap(services.ErrValidation, "store", "create", "payload is empty", nil)
	}
	createdAt := time.Now().UTC()
	id, err := s.insert(ctx, userID, createdAt, payload, nil)
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis: %w", err)
	}
	return Record{ID: id, UserID: userID, CreatedAt: createdAt, Payload: append([]byte(nil), payload...)}, nil
}

// CreateLegacy inserts a record in the index-keyed JSON layout.
func (s *SQLiteStore) CreateLegacy(ctx context.Context, userID int64, createdAt time.Time, payloadJSON []byte) (Record, error) {
	if err := validateOwner("create legacy", userID); err != nil {
		return Record{}, err
	}
	if err := validateLegacy(payloadJSON); err != nil {
		return Record{}, err
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC()
	id, err := s.insert(ctx, userID, createdAt, nil, string(payloadJSON))
	if err != nil {
		return Record{}, fmt.Errorf("insert legacy analysis: %w", err)
	}
	return Record{ID: id, UserID: userID, CreatedAt: createdAt, Payload: decodeLegacy(string(payloadJSON))}, nil
}

func (s *SQLiteStore) insert(ctx context.Context, userID int64, createdAt time.Time, payload []byte, payloadJSON any) (int64, error) {
	var blob any
	if payload != nil {
		blob = payload
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO analyses (user_id, created_at, payload, payload_json) VALUES (?, ?, ?, ?)`,
		userID, createdAt.Format(timestampLayout), blob, payloadJSON,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListByUser returns the user's records ordered by creation time, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM analyses WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Get fetches one record owned by userID.
func (s *SQLiteStore) Get(ctx context.Context, userID, id int64) (Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM analyses WHERE id = ? AND user_id = ?`, id, userID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound("get", userID, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get analysis: %w", err)
	}
	return record, nil
}

// Delete removes one record owned by userID.
func (s *SQLiteStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM analyses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if affected == 0 {
		return notFound("delete", userID, id)
	}
	return nil
}

// Health reports the record count and database location.
func (s *SQLiteStore) Health(ctx context.Context) (Health, error) {
	health := Health{Backend: config.DriverSQLite, Location: s.path}
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM analyses`).Scan(&health.Records); err != nil {
		return health, fmt.Errorf("count analyses: %w", err)
	}
	return health, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		record      Record
		createdRaw  sql.NullString
		payload     []byte
		payloadJSON sql.NullString
	)
	if err := scanner.Scan(&record.ID, &record.UserID, &createdRaw, &payload, &payloadJSON); err != nil {
		return Record{}, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	switch {
	case payload != nil:
		record.Payload = payload
	case payloadJSON.Valid:
		record.Payload = decodeLegacy(payloadJSON.String)
	}
	return record, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
