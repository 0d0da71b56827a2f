package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"movup/internal/config"
	"movup/internal/services"
)

// schemaVersion is the current schema version for both backends.
const schemaVersion = 1

// Record is one persisted analysis. Payload holds []byte for current rows and
// the decoded legacy object (map[string]any) for rows written by older
// deployments. It is nil only when a row carries neither column.
type Record struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
	Payload   any
}

// Health summarizes backend state for the status endpoint.
type Health struct {
	Backend  string `json:"backend"`
	Records  int    `json:"records"`
	Location string `json:"location"`
}

// Store is the persistence boundary for analysis records.
type Store interface {
	// Create writes payload as a new record owned by userID.
	Create(ctx context.Context, userID int64, payload []byte) (Record, error)
	// CreateLegacy writes a record in the index-keyed JSON layout used by
	// older deployments. It exists for imports of exported legacy rows.
	CreateLegacy(ctx context.Context, userID int64, createdAt time.Time, payloadJSON []byte) (Record, error)
	// ListByUser returns the user's records, most recent first.
	ListByUser(ctx context.Context, userID int64) ([]Record, error)
	// Get returns one record. Records owned by another user are not found.
	Get(ctx context.Context, userID, id int64) (Record, error)
	// Delete removes one record owned by userID.
	Delete(ctx context.Context, userID, id int64) error
	Health(ctx context.Context) (Health, error)
	Close() error
}

// Open connects to the backend selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", "config is nil", nil)
	}
	switch cfg.Storage.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(cfg)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "store", "open",
			fmt.Sprintf("unsupported driver %q", cfg.Storage.Driver), nil)
	}
}

func notFound(operation string, userID, id int64) error {
	return services.Wrap(services.ErrNotFound, "store", operation,
		fmt.Sprintf("record %d for user %d", id, userID), nil)
}

// decodeLegacy turns a payload_json column into the object blobcodec expects.
// Unparseable text is returned as-is so the codec reports it as a decode
// failure for that record only.
func decodeLegacy(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return raw
	}
	return obj
}

func validateLegacy(payloadJSON []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(payloadJSON, &obj); err != nil || obj == nil {
		return services.Wrap(services.ErrValidation, "store", "create legacy",
			"payload must be a JSON object keyed by byte index", err)
	}
	return nil
}

func validateOwner(operation string, userID int64) error {
	if userID <= 0 {
		return services.Wrap(services.ErrValidation, "store", operation,
			fmt.Sprintf("invalid user id %d", userID), nil)
	}
	return nil
}
