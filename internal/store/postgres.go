package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"movup/internal/config"
	"movup/internal/services"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresStore keeps records in PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	host string
}

// OpenPostgres connects using the [storage.postgres] settings, verifies the
// connection, and initializes the schema.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	ctx = ensureContext(ctx)
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open postgres", "invalid connection settings", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{pool: pool, host: cfg.Storage.Postgres.Host}
	if err := store.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// InitSchema creates the tables on an empty database and checks the recorded
// version otherwise.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'schema_version')`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if exists {
		var version int
		if err := s.pool.QueryRow(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version != schemaVersion {
			return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
		}
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range splitStatements(postgresSchema) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Create inserts a new record with a binary payload.
func (s *PostgresStore) Create(ctx context.Context, userID int64, payload []byte) (Record, error) {
	if err := validateOwner("create", userID); err != nil {
		return Record{}, err
	}
	if len(payload) == 0 {
		return Record{}, services.Wrap(services.ErrValidation, "store", "create", "payload is empty", nil)
	}
	record := Record{UserID: userID, CreatedAt: time.Now().UTC(), Payload: append([]byte(nil), payload...)}
	err := s.pool.QueryRow(ensureContext(ctx),
		`INSERT INTO analyses (user_id, created_at, payload) VALUES ($1, $2, $3) RETURNING id`,
		userID, record.CreatedAt, payload,
	).Scan(&record.ID)
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis: %w", err)
	}
	return record, nil
}

// CreateLegacy inserts a record in the index-keyed JSON layout.
func (s *PostgresStore) CreateLegacy(ctx context.Context, userID int64, createdAt time.Time, payloadJSON []byte) (Record, error) {
	if err := validateOwner("create legacy", userID); err != nil {
		return Record{}, err
	}
	if err := validateLegacy(payloadJSON); err != nil {
		return Record{}, err
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	record := Record{UserID: userID, CreatedAt: createdAt.UTC(), Payload: decodeLegacy(string(payloadJSON))}
	err := s.pool.QueryRow(ensureContext(ctx),
		`INSERT INTO analyses (user_id, created_at, payload_json) VALUES ($1, $2, $3) RETURNING id`,
		userID, record.CreatedAt, string(payloadJSON),
	).Scan(&record.ID)
	if err != nil {
		return Record{}, fmt.Errorf("insert legacy analysis: %w", err)
	}
	return record, nil
}

// ListByUser returns the user's records ordered by creation time, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]Record, error) {
	rows, err := s.pool.Query(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM analyses WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Get fetches one record owned by userID.
func (s *PostgresStore) Get(ctx context.Context, userID, id int64) (Record, error) {
	row := s.pool.QueryRow(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	record, err := scanPostgresRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, notFound("get", userID, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get analysis: %w", err)
	}
	return record, nil
}

// Delete removes one record owned by userID.
func (s *PostgresStore) Delete(ctx context.Context, userID, id int64) error {
	tag, err := s.pool.Exec(ensureContext(ctx), `DELETE FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("delete", userID, id)
	}
	return nil
}

// Health reports the record count and server host.
func (s *PostgresStore) Health(ctx context.Context) (Health, error) {
	health := Health{Backend: config.DriverPostgres, Location: s.host}
	if err := s.pool.QueryRow(ensureContext(ctx), `SELECT COUNT(1) FROM analyses`).Scan(&health.Records); err != nil {
		return health, fmt.Errorf("count analyses: %w", err)
	}
	return health, nil
}

func scanPostgresRecord(row pgx.Row) (Record, error) {
	var (
		record      Record
		payload     []byte
		payloadJSON *string
	)
	if err := row.Scan(&record.ID, &record.UserID, &record.CreatedAt, &payload, &payloadJSON); err != nil {
		return Record{}, err
	}
	record.CreatedAt = record.CreatedAt.UTC()
	switch {
	case payload != nil:
		record.Payload = payload
	case payloadJSON != nil:
		record.Payload = decodeLegacy(*payloadJSON)
	}
	return record, nil
}
