package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vterekhov/recordsync/internal/wire"
)

type credentials struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actorID, err := s.auth.Register(r.Context(), c.Name, c.Secret)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"actor_id": actorID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actorID, token, err := s.auth.Login(r.Context(), c.Name, c.Secret)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"actor_id": actorID, "token": token})
}

func (s *Server) handleSaveRecords(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	var recs []*wire.Record
	if err := json.NewDecoder(r.Body).Decode(&recs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.records.SaveBatch(r.Context(), actorFrom(r.Context()), scope, recs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleFetchAll(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	recs, err := s.records.FetchAll(r.Context(), actorFrom(r.Context()), scope)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleFetchRecord(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	rec, err := s.records.Fetch(r.Context(), actorFrom(r.Context()), scope, r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if _, ok := scopeOf(r); !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	// Deletion is an owner operation whichever scope the call names.
	if err := s.records.Delete(r.Context(), actorFrom(r.Context()), r.PathValue("name")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	var q wire.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recs, err := s.records.Query(r.Context(), actorFrom(r.Context()), scope, q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSaveZone(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.records.SaveZone(r.Context(), actorFrom(r.Context()), scope, body.Name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleFetchZones(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	zones, err := s.records.FetchZones(r.Context(), actorFrom(r.Context()), scope)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, zones)
}

func (s *Server) handleSaveSubscription(w http.ResponseWriter, r *http.Request) {
	if _, ok := scopeOf(r); !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	var sub wire.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.records.SaveSubscription(r.Context(), actorFrom(r.Context()), sub); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDatabaseChanges(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	since := wire.Token(r.URL.Query().Get("since"))
	page, err := s.records.DatabaseChanges(r.Context(), actorFrom(r.Context()), scope, since)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleZoneChanges(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	zone := r.URL.Query().Get("zone")
	since := wire.Token(r.URL.Query().Get("since"))
	page, err := s.records.ZoneChanges(r.Context(), actorFrom(r.Context()), scope, zone, since)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSaveShare(w http.ResponseWriter, r *http.Request) {
	if _, ok := scopeOf(r); !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	var share wire.Share
	if err := json.NewDecoder(r.Body).Decode(&share); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.shares.Create(r.Context(), actorFrom(r.Context()), share)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleAcceptShare(w http.ResponseWriter, r *http.Request) {
	if _, ok := scopeOf(r); !ok {
		writeError(w, http.StatusNotFound, "unknown scope")
		return
	}

	var meta wire.ShareMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.shares.Accept(r.Context(), actorFrom(r.Context()), meta)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type assetURLBody struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url"`
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.assets.UploadURL(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assetURLBody{Key: key, URL: url})
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}

	url, err := s.assets.DownloadURL(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assetURLBody{URL: url})
}

var upgrader = websocket.Upgrader{
	// Bearer auth already ran; cross-origin browser clients are not a
	// supported surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	pc := &pushConn{conn: conn}
	s.hub.add(actor, pc)
	s.log.Info(r.Context(), "push channel open", "actor", actor)

	defer func() {
		s.hub.remove(actor, pc)
		_ = conn.Close()
		s.log.Info(r.Context(), "push channel closed", "actor", actor)
	}()

	// Reads only drain control frames; the hub owns all writes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
