package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"movup/internal/api"
	"movup/internal/logging"
	"movup/internal/services"
)

// maxBodyBytes bounds POST /analises bodies.
const maxBodyBytes = 32 << 20

const requestIDHeader = "X-Request-ID"

type handlers struct {
	svc       *api.AnalysisService
	logger    *slog.Logger
	lockPath  string
	imageBase string
}

func (h *handlers) routes(auth *authenticator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/analises", h.handleCreate)
	mux.HandleFunc("/analises/", h.handleAnalyses)
	return h.requestID(auth.middleware(mux))
}

// requestID tags the request context and response with a correlation id,
// reusing a well-formed inbound X-Request-ID.
func (h *handlers) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := services.WithRequestID(r.Context(), id)
		logging.WithContext(ctx, h.log()).Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := h.svc.Status(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status.LockFilePath = h.lockPath
	status.ImageBase = h.imageBase
	writeJSON(w, http.StatusOK, status)
}

func (h *handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, r, http.StatusBadRequest, "unreadable request body")
		return
	}
	userID, data, err := api.ParseCreateRequest(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !mayAccess(r.Context(), userID) {
		h.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	resp, err := h.svc.CreateDocument(services.WithUserID(r.Context(), userID), userID, data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleAnalyses serves /analises/{userId} and /analises/{userId}/{id}.
func (h *handlers) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/analises/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		h.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	userID, err := api.ParseUserID(parts[0])
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if !mayAccess(r.Context(), userID) {
		h.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	ctx := services.WithUserID(r.Context(), userID)
	r = r.WithContext(ctx)

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		entries, err := h.svc.List(ctx, userID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if entries == nil {
			entries = []api.AnalysisEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	id, err := api.ParseRecordID(parts[1])
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid analysis id")
		return
	}
	r = r.WithContext(services.WithRecordID(ctx, id))
	switch r.Method {
	case http.MethodGet:
		detail, err := h.svc.Get(r.Context(), userID, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodDelete:
		if err := h.svc.Delete(r.Context(), userID, id); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// fail maps a classified error to its status code and logs server faults.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), h.log()), "request failed", "request_error",
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorHint, "check storage connectivity"),
		)
	}
	writeJSON(w, status, api.ErrorBody(err))
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.WithContext(r.Context(), h.log()).Debug("request rejected",
		logging.Int("status", status),
		logging.String("reason", message),
	)
	writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (h *handlers) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return logging.NewNop()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
