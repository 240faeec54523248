// Package httpapi exposes the record service as a JSON-over-HTTP API plus a
// websocket push endpoint.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/server/services"
	"github.com/vterekhov/recordsync/internal/wire"
)

type Server struct {
	records *services.RecordService
	shares  *services.ShareService
	assets  *services.AssetService
	auth    *services.AuthService
	hub     *Hub
	secret  []byte
	log     logging.Logger
}

func NewServer(records *services.RecordService, shares *services.ShareService,
	assets *services.AssetService, auth *services.AuthService,
	hub *Hub, secret []byte, log logging.Logger) *Server {
	return &Server{
		records: records,
		shares:  shares,
		assets:  assets,
		auth:    auth,
		hub:     hub,
		secret:  secret,
		log:     log.With("module", "httpapi"),
	}
}

// Handler builds the route table. All /api routes except auth require a
// bearer token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("POST /api/{scope}/records", s.handleSaveRecords)
	mux.HandleFunc("GET /api/{scope}/records", s.handleFetchAll)
	mux.HandleFunc("GET /api/{scope}/records/{name}", s.handleFetchRecord)
	mux.HandleFunc("DELETE /api/{scope}/records/{name}", s.handleDeleteRecord)
	mux.HandleFunc("POST /api/{scope}/query", s.handleQuery)
	mux.HandleFunc("POST /api/{scope}/zones", s.handleSaveZone)
	mux.HandleFunc("GET /api/{scope}/zones", s.handleFetchZones)
	mux.HandleFunc("POST /api/{scope}/subscriptions", s.handleSaveSubscription)
	mux.HandleFunc("GET /api/{scope}/changes/database", s.handleDatabaseChanges)
	mux.HandleFunc("GET /api/{scope}/changes/zone", s.handleZoneChanges)
	mux.HandleFunc("POST /api/{scope}/shares", s.handleSaveShare)
	mux.HandleFunc("POST /api/{scope}/shares/accept", s.handleAcceptShare)

	mux.HandleFunc("POST /api/assets/upload-url", s.handleUploadURL)
	mux.HandleFunc("GET /api/assets/download-url", s.handleDownloadURL)

	mux.HandleFunc("GET /ws", s.handlePush)

	return s.withAuth(mux)
}

// scopeOf parses the {scope} path segment.
func scopeOf(r *http.Request) (wire.Scope, bool) {
	switch wire.Scope(r.PathValue("scope")) {
	case wire.ScopePrivate:
		return wire.ScopePrivate, true
	case wire.ScopeShared:
		return wire.ScopeShared, true
	default:
		return "", false
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Failed map[string]string `json:"failed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps service errors onto the status codes clients
// classify on.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var partial *services.PartialError
	switch {
	case errors.As(err, &partial):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: partial.Error(), Failed: partial.Failed})
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPermission):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExpiredToken):
		writeError(w, http.StatusGone, err.Error())
	default:
		s.log.Error(r.Context(), "internal error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
