package api

import (
	"encoding/json"
	"time"

	"movup/internal/assembler"
	"movup/internal/report"
	"movup/internal/store"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CreatedMessage is the message field of a successful create.
const CreatedMessage = "Criado"

// DecodeFailureMessage marks a listed record whose payload could not be decoded.
const DecodeFailureMessage = "Erro ao processar dados"

// NotReportMessage marks a record whose JSON document is not an analysis.
const NotReportMessage = "Documento não é uma análise"

// CreateRequest is the POST /analises body. UserID accepts a JSON number or a
// numeric string; Data must be a JSON object.
type CreateRequest struct {
	UserID json.RawMessage `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

// AnalysisRef identifies a stored record without its payload.
type AnalysisRef struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

// CreateResponse is returned with status 201.
type CreateResponse struct {
	Message  string      `json:"message"`
	Analise  AnalysisRef `json:"analise"`
	ReportID int64       `json:"report_id"`
}

// AnalysisEntry is one record in a listing. Data is null and Error is set when
// the payload could not be decoded. A document that decodes but is not an
// analysis keeps Data and carries NotReportMessage.
type AnalysisEntry struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	CreatedAt string           `json:"createdAt"`
	Data      json.RawMessage  `json:"data"`
	Error     string           `json:"error,omitempty"`
	Stats     *assembler.Stats `json:"stats,omitempty"`
}

// Decoded reports whether the entry carries a document.
func (e AnalysisEntry) Decoded() bool { return e.Error == "" && len(e.Data) > 0 }

// AnalysisDetail is a single record with its assembled report and sections.
type AnalysisDetail struct {
	AnalysisEntry
	Report   *report.AnalysisReport `json:"report,omitempty"`
	Sections []assembler.Section    `json:"sections,omitempty"`
}

// StatusResponse describes daemon state for GET /api/status.
type StatusResponse struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	LockFilePath string       `json:"lockFilePath,omitempty"`
	Storage      store.Health `json:"storage"`
	ImageBase    string       `json:"imageBase"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func refFromRecord(rec store.Record) AnalysisRef {
	return AnalysisRef{ID: rec.ID, UserID: rec.UserID, CreatedAt: formatTime(rec.CreatedAt)}
}
