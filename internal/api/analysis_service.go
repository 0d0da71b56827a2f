package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"movup/internal/assembler"
	"movup/internal/blobcodec"
	"movup/internal/logging"
	"movup/internal/report"
	"movup/internal/services"
	"movup/internal/store"
)

// defaultConcurrency bounds parallel payload decoding in listings.
const defaultConcurrency = 4

// RecordStore abstracts persistence interactions needed by the service.
type RecordStore interface {
	Create(ctx context.Context, userID int64, payload []byte) (store.Record, error)
	ListByUser(ctx context.Context, userID int64) ([]store.Record, error)
	Get(ctx context.Context, userID, id int64) (store.Record, error)
	Delete(ctx context.Context, userID, id int64) error
	Health(ctx context.Context) (store.Health, error)
}

// ServiceOptions configures an AnalysisService.
type ServiceOptions struct {
	Presenter   *assembler.Presenter
	Logger      *slog.Logger
	Concurrency int
}

// AnalysisService stores and decodes analysis records, returning API DTOs.
type AnalysisService struct {
	store       RecordStore
	presenter   *assembler.Presenter
	logger      *slog.Logger
	concurrency int
}

// NewAnalysisService constructs an AnalysisService around the provided store.
func NewAnalysisService(store RecordStore, opts ServiceOptions) *AnalysisService {
	if store == nil {
		return nil
	}
	if opts.Presenter == nil {
		opts.Presenter = assembler.NewPresenter(nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &AnalysisService{
		store:       store,
		presenter:   opts.Presenter,
		logger:      logging.NewComponentLogger(opts.Logger, "api"),
		concurrency: opts.Concurrency,
	}
}

// ParseCreateRequest validates a POST /analises body. A userId that is
// missing or not a positive integer, or a missing data member, is a
// *MissingFieldError.
func ParseCreateRequest(body []byte) (int64, []byte, error) {
	var req CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return 0, nil, services.Wrap(services.ErrValidation, "api", "create", "request body must be a JSON object", err)
	}
	userID, err := parseUserID(req.UserID)
	if err != nil {
		return 0, nil, err
	}
	data := bytes.TrimSpace(req.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, nil, &MissingFieldError{Field: "data"}
	}
	if data[0] != '{' {
		return 0, nil, services.Wrap(services.ErrValidation, "api", "create", "data must be a JSON object", nil)
	}
	return userID, data, nil
}

func parseUserID(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	id, err := ParseUserID(text)
	if err != nil {
		return 0, &MissingFieldError{Field: "userId"}
	}
	return id, nil
}

// ParseUserID parses a positive owner id from a path segment or request field.
func ParseUserID(value string) (int64, error) {
	return parseID("parse user id", value)
}

// ParseRecordID parses a positive analysis record id from a path segment.
func ParseRecordID(value string) (int64, error) {
	return parseID("parse record id", value)
}

func parseID(operation, value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "api", operation, strconv.Quote(value), err)
	}
	if id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "api", operation, "must be positive", nil)
	}
	return id, nil
}

// Create validates body and stores its data member.
func (s *AnalysisService) Create(ctx context.Context, body []byte) (CreateResponse, error) {
	userID, data, err := ParseCreateRequest(body)
	if err != nil {
		return CreateResponse{}, err
	}
	return s.CreateDocument(ctx, userID, data)
}

// CreateDocument canonicalizes doc and stores it for userID.
func (s *AnalysisService) CreateDocument(ctx context.Context, userID int64, doc []byte) (CreateResponse, error) {
	payload, err := blobcodec.EncodeDocument(doc)
	if err != nil {
		return CreateResponse{}, err
	}
	return s.persist(ctx, userID, payload)
}

// CreateReport stores an assembled report for userID, tagged so it is read
// back as a report rather than a raw service response.
func (s *AnalysisService) CreateReport(ctx context.Context, userID int64, r report.AnalysisReport) (CreateResponse, error) {
	payload, err := blobcodec.Encode(r)
	if err != nil {
		return CreateResponse{}, err
	}
	return s.persist(ctx, userID, payload)
}

func (s *AnalysisService) persist(ctx context.Context, userID int64, payload []byte) (CreateResponse, error) {
	rec, err := s.store.Create(ctx, userID, payload)
	if err != nil {
		return CreateResponse{}, err
	}
	logger := logging.WithContext(services.WithRecordID(services.WithUserID(ctx, userID), rec.ID), s.logger)
	logger.Info("analysis stored", logging.Int("payload_bytes", len(payload)))
	return CreateResponse{
		Message:  CreatedMessage,
		Analise:  refFromRecord(rec),
		ReportID: rec.ID,
	}, nil
}

// List returns every record owned by userID, most recent first. Payloads are
// decoded in parallel; a record that fails to decode is returned with a null
// document and an error marker.
func (s *AnalysisService) List(ctx context.Context, userID int64) ([]AnalysisEntry, error) {
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]AnalysisEntry, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i], _ = s.decode(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns one record with its assembled report and display sections.
func (s *AnalysisService) Get(ctx context.Context, userID, id int64) (AnalysisDetail, error) {
	rec, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return AnalysisDetail{}, err
	}
	entry, r := s.decode(ctx, rec)
	detail := AnalysisDetail{AnalysisEntry: entry}
	if r == nil {
		return detail, nil
	}
	detail.Report = r
	detail.Sections = s.presenter.Present(*r)
	return detail, nil
}

// Delete removes one record owned by userID.
func (s *AnalysisService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	logging.WithContext(services.WithRecordID(services.WithUserID(ctx, userID), id), s.logger).
		Info("analysis deleted")
	return nil
}

// Status reports store health for the status endpoint.
func (s *AnalysisService) Status(ctx context.Context) (StatusResponse, error) {
	health, err := s.store.Health(ctx)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{
		Running: true,
		PID:     os.Getpid(),
		Storage: health,
	}, nil
}

// decode builds the listing entry for rec and returns its report, or nil when
// the payload could not be decoded or does not hold an analysis. Both failures
// set entry.Error; a document that decodes but is not an analysis keeps Data.
func (s *AnalysisService) decode(ctx context.Context, rec store.Record) (AnalysisEntry, *report.AnalysisReport) {
	entry := AnalysisEntry{ID: rec.ID, UserID: rec.UserID, CreatedAt: formatTime(rec.CreatedAt)}
	ctx = services.WithRecordID(services.WithUserID(ctx, rec.UserID), rec.ID)

	data, err := blobcodec.Payload(rec.Payload)
	if err != nil {
		shape := blobcodec.Detect(rec.Payload)
		var decodeErr *blobcodec.DecodeError
		if errors.As(err, &decodeErr) {
			shape = decodeErr.Shape
		}
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "stored analysis could not be decoded", "decode_failed",
			logging.String(logging.FieldDecodeShape, string(shape)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the payload and payload_json columns for this record"),
			logging.String(logging.FieldImpact, "record listed without report data"),
		)
		entry.Error = DecodeFailureMessage
		return entry, nil
	}
	entry.Data = json.RawMessage(data)

	r, err := assembler.FromPayload(data)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "stored document is not an analysis report", "report_invalid",
			logging.String(logging.FieldDecodeShape, string(blobcodec.Detect(rec.Payload))),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the data member must be a service response or an assembled report"),
			logging.String(logging.FieldImpact, "record returned without report or stats"),
		)
		entry.Error = NotReportMessage
		return entry, nil
	}
	stats := assembler.Summarize(r)
	entry.Stats = &stats
	return entry, &r
}
