package store_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"movup/internal/blobcodec"
	"movup/internal/config"
	"movup/internal/services"
	"movup/internal/store"
	"movup/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s, err := store.OpenSQLite(cfg)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	_ = reopened.Close()
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Driver = "mongo"
	_, err := store.Open(context.Background(), cfg)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created, err := s.Create(ctx, 7, []byte(`{"summary":{}}`))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == 0 || created.UserID != 7 || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected record: %+v", created)
	}

	got, err := s.Get(ctx, 7, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	payload, ok := got.Payload.([]byte)
	if !ok || string(payload) != `{"summary":{}}` {
		t.Fatalf("unexpected payload %T %v", got.Payload, got.Payload)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestCreateValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := s.Create(ctx, 0, []byte(`{}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for user 0, got %v", err)
	}
	if _, err := s.Create(ctx, 1, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty payload, got %v", err)
	}
	if _, err := s.CreateLegacy(ctx, 1, time.Time{}, []byte(`[1,2]`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for non-object legacy payload, got %v", err)
	}
}

func TestGetOtherOwnerIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created, err := s.Create(ctx, 1, []byte(`{}`))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Get(ctx, 2, created.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if err := s.Delete(ctx, 2, created.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found deleting other owner's record, got %v", err)
	}
	if err := s.Delete(ctx, 1, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, 1, created.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	legacyOld, err := s.CreateLegacy(ctx, 5, base, []byte(`{"0":123,"1":125}`))
	if err != nil {
		t.Fatalf("CreateLegacy failed: %v", err)
	}
	legacyNew, err := s.CreateLegacy(ctx, 5, base.Add(90*time.Millisecond), []byte(`{"0":123,"1":125}`))
	if err != nil {
		t.Fatalf("CreateLegacy failed: %v", err)
	}
	current, err := s.Create(ctx, 5, []byte(`{}`))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create(ctx, 6, []byte(`{}`)); err != nil {
		t.Fatalf("Create for other user failed: %v", err)
	}

	records, err := s.ListByUser(ctx, 5)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	want := []int64{current.ID, legacyNew.ID, legacyOld.ID}
	for i, id := range want {
		if records[i].ID != id {
			t.Fatalf("record %d: got id %d want %d", i, records[i].ID, id)
		}
	}
	if _, ok := records[1].Payload.(map[string]any); !ok {
		t.Fatalf("expected legacy payload object, got %T", records[1].Payload)
	}
}

func TestLegacyRowDecodesThroughCodec(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := []byte(`{"summary":{"total_frames":10,"fps":30,"total_duration_seconds":0.3}}`)
	created, err := s.CreateLegacy(ctx, 3, time.Now(), testsupport.LegacyIndexed(t, doc))
	if err != nil {
		t.Fatalf("CreateLegacy failed: %v", err)
	}
	got, err := s.Get(ctx, 3, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	payload, err := blobcodec.Payload(got.Payload)
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if string(payload) != string(doc) {
		t.Fatalf("legacy payload mismatch: %s", payload)
	}
}

func TestHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.Create(ctx, 1, []byte(`{}`)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	health, err := s.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Backend != config.DriverSQLite || health.Records != 2 || health.Location != cfg.DatabasePath() {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestPostgresBackend(t *testing.T) {
	dsnHost := os.Getenv("MOVUP_TEST_PG_HOST")
	if dsnHost == "" {
		t.Skip("MOVUP_TEST_PG_HOST not set")
	}
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Driver = config.DriverPostgres
	cfg.Storage.Postgres.Host = dsnHost
	cfg.Storage.Postgres.User = os.Getenv("MOVUP_TEST_PG_USER")
	cfg.Storage.Postgres.Password = os.Getenv("MOVUP_TEST_PG_PASSWORD")

	ctx := context.Background()
	s, err := store.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open postgres failed: %v", err)
	}
	defer s.Close()

	userID := time.Now().UnixNano()%1_000_000_000 + 1
	created, err := s.Create(ctx, userID, []byte(`{}`))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer func() { _ = s.Delete(ctx, userID, created.ID) }()

	records, err := s.ListByUser(ctx, userID)
	if err != nil || len(records) != 1 || records[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v err=%v", records, err)
	}
	if _, err := s.Get(ctx, userID+1, created.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
}
