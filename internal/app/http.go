package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spreadsheet/api/internal/auth"
	"spreadsheet/api/internal/export"
	"spreadsheet/api/internal/persist"
	"spreadsheet/api/internal/rbac"
	"spreadsheet/api/internal/search"
	"spreadsheet/api/internal/sheet"
)

type HTTPServer struct {
	service    *Service
	keys       *auth.KeyChecker
	corsOrigin string
}

// NewHTTPServer wires the JSON API. A nil keys leaves every caller an editor.
func NewHTTPServer(service *Service, keys *auth.KeyChecker, corsOrigin string) *HTTPServer {
	if keys == nil {
		keys = auth.NewKeyChecker("")
	}
	return &HTTPServer{service: service, keys: keys, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	role := s.keys.RoleForRequest(r)
	parts := splitPath(r.URL.Path)

	if len(parts) == 2 && parts[0] == "api" && parts[1] == "search" && r.Method == http.MethodGet {
		if !s.service.Can(role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		query := r.URL.Query()
		writeJSON(w, http.StatusOK, s.service.Search(search.Query{
			Text:    query.Get("q"),
			SheetID: strings.TrimSpace(query.Get("sheetId")),
			Limit:   queryInt(query.Get("limit"), 20),
			Offset:  queryInt(query.Get("offset"), 0),
		}))
		return
	}

	if len(parts) == 2 && parts[0] == "api" && parts[1] == "sheets" && r.Method == http.MethodPost {
		if !s.service.Can(role, rbac.ActionCreate) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		payload, err := s.service.CreateSheet(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "sheets" {
		s.handleSheet(w, r, role, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	failures, open := s.service.SaveFailures()
	checks := map[string]any{
		"backend": map[string]any{"status": "ok", "name": s.service.BackendName()},
		"persistence": map[string]any{
			"saveFailures": failures,
			"openSheets":   open,
		},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["backend"] = map[string]any{
			"status": "error",
			"name":   s.service.BackendName(),
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleSheet(w http.ResponseWriter, r *http.Request, role rbac.Role, sheetID string, rest []string) {
	ctx := r.Context()
	term := r.URL.Query().Get("q")

	if len(rest) == 0 && r.Method == http.MethodGet {
		if !s.service.Can(role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		payload, err := s.service.View(ctx, sheetID, term)
		s.respond(w, r, payload, err)
		return
	}

	if len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet {
		if !s.service.Can(role, rbac.ActionExport) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be csv, xlsx or pdf", nil)
			return
		}
		result, err := s.service.Export(ctx, sheetID, format, term)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	if len(rest) >= 1 && rest[0] == "revisions" && r.Method == http.MethodGet {
		if !s.service.Can(role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var (
			payload map[string]any
			err     error
		)
		switch len(rest) {
		case 1:
			payload, err = s.service.Revisions(ctx, sheetID, queryInt(r.URL.Query().Get("limit"), 50))
		case 2:
			payload, err = s.service.Revision(ctx, sheetID, rest[1])
		default:
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.respond(w, r, payload, err)
		return
	}

	action, ok := sheetActions[actionKey(r.Method, rest)]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if !s.service.Can(role, rbac.ActionWrite) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}
	payload, err := action(s, r, sheetID, rest, term)
	s.respond(w, r, payload, err)
}

type sheetAction func(s *HTTPServer, r *http.Request, sheetID string, rest []string, term string) (map[string]any, error)

// sheetActions is keyed by method and path shape; "*" stands for a cell index.
var sheetActions = map[string]sheetAction{
	"POST cells/*/select": func(s *HTTPServer, r *http.Request, sheetID string, rest []string, term string) (map[string]any, error) {
		index, err := parseIndex(rest[1])
		if err != nil {
			return nil, err
		}
		return s.service.Select(r.Context(), sheetID, index, term)
	},
	"PUT draft": func(s *HTTPServer, r *http.Request, sheetID string, _ []string, term string) (map[string]any, error) {
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return s.service.UpdateDraft(r.Context(), sheetID, body.Text, term)
	},
	"POST commit": func(s *HTTPServer, r *http.Request, sheetID string, _ []string, term string) (map[string]any, error) {
		return s.service.Commit(r.Context(), sheetID, term)
	},
	"PUT format": func(s *HTTPServer, r *http.Request, sheetID string, _ []string, term string) (map[string]any, error) {
		var body FormatInput
		if err := decodeBody(r, &body); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return s.service.SetFormat(r.Context(), sheetID, body, term)
	},
	"POST undo": func(s *HTTPServer, r *http.Request, sheetID string, _ []string, term string) (map[string]any, error) {
		return s.service.Undo(r.Context(), sheetID, term)
	},
	"POST redo": func(s *HTTPServer, r *http.Request, sheetID string, _ []string, term string) (map[string]any, error) {
		return s.service.Redo(r.Context(), sheetID, term)
	},
	"POST merge": func(s *HTTPServer, r *http.Request, sheetID string, _ []string, term string) (map[string]any, error) {
		return s.service.Merge(r.Context(), sheetID, term)
	},
	"DELETE merges/*": func(s *HTTPServer, r *http.Request, sheetID string, rest []string, term string) (map[string]any, error) {
		index, err := parseIndex(rest[1])
		if err != nil {
			return nil, err
		}
		return s.service.Unmerge(r.Context(), sheetID, index, term)
	},
}

func actionKey(method string, rest []string) string {
	shape := make([]string, len(rest))
	for i, part := range rest {
		if i == 1 && (rest[0] == "cells" || rest[0] == "merges") {
			shape[i] = "*"
			continue
		}
		shape[i] = part
	}
	return method + " " + strings.Join(shape, "/")
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domainError(http.StatusBadRequest, "INVALID_INDEX", "cell index must be an integer", map[string]any{"index": raw})
	}
	return index, nil
}

// respond writes a service result. Actions that had nothing to act on
// answer 200 with applied=false.
func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, payload map[string]any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, payload)
		return
	}
	s.fail(w, r, err)
}

// fail writes err as an error response. Server errors are logged with the
// request id so they can be matched to the access log line.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	switch {
	case status == http.StatusOK:
		writeJSON(w, http.StatusOK, map[string]any{"applied": false, "code": code, "message": message})
		return
	case status >= http.StatusInternalServerError:
		log.Printf("app: request %s: %v", requestIDFrom(r.Context()), err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func queryInt(raw string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, sheet.ErrNoActiveEdit):
		return http.StatusOK, "NO_ACTIVE_EDIT", "No cell is being edited", nil
	case errors.Is(err, sheet.ErrEmptySelection):
		return http.StatusOK, "EMPTY_SELECTION", "No cells are selected", nil
	case errors.Is(err, sheet.ErrInvalidIndex):
		return http.StatusUnprocessableEntity, "INVALID_INDEX", err.Error(), nil
	case errors.Is(err, sheet.ErrInvalidRange):
		return http.StatusUnprocessableEntity, "INVALID_RANGE", err.Error(), nil
	case errors.Is(err, sheet.ErrRangeOverlap):
		return http.StatusUnprocessableEntity, "RANGE_OVERLAP", err.Error(), nil
	case errors.Is(err, sheet.ErrInvalidFormat):
		return http.StatusUnprocessableEntity, "INVALID_FORMAT", err.Error(), nil
	case errors.Is(err, persist.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this server", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
