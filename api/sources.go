package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RobbyV2/caldav-to-ics/engine"
	"github.com/RobbyV2/caldav-to-ics/store"
)

var icsPathPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// sourceDTO is a Source with its password elided, per the API contract.
type sourceDTO struct {
	ID               int64      `json:"id"`
	ICSPath          string     `json:"ics_path"`
	Name             string     `json:"name"`
	CalDAVBaseURL    string     `json:"caldav_base_url"`
	Username         string     `json:"username"`
	SyncIntervalSecs int        `json:"sync_interval_secs"`
	LastSynced       *time.Time `json:"last_synced"`
	LastSyncStatus   string     `json:"last_sync_status"`
	LastSyncError    *string    `json:"last_sync_error"`
	CreatedAt        time.Time  `json:"created_at"`
}

func sourceToDTO(s *store.Source) sourceDTO {
	return sourceDTO{
		ID:               s.ID,
		ICSPath:          s.ICSPath,
		Name:             s.Name,
		CalDAVBaseURL:    s.CalDAVBaseURL,
		Username:         s.Username,
		SyncIntervalSecs: s.SyncIntervalSecs,
		LastSynced:       s.LastSynced,
		LastSyncStatus:   s.LastSyncStatus,
		LastSyncError:    s.LastSyncError,
		CreatedAt:        s.CreatedAt,
	}
}

type sourceRequest struct {
	ICSPath          string `json:"ics_path"`
	Name             string `json:"name"`
	CalDAVBaseURL    string `json:"caldav_base_url"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	SyncIntervalSecs int    `json:"sync_interval_secs"`
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.ListSources()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]sourceDTO, 0, len(sources))
	for _, src := range sources {
		dtos = append(dtos, sourceToDTO(src))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": dtos})
}

func (s *Server) createSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !icsPathPattern.MatchString(req.ICSPath) {
		writeError(w, http.StatusBadRequest, "ics_path must match ^[A-Za-z0-9._-]+$")
		return
	}
	if req.SyncIntervalSecs < 0 {
		writeError(w, http.StatusBadRequest, "sync_interval_secs must be >= 0")
		return
	}

	src := &store.Source{
		ICSPath:          req.ICSPath,
		Name:             req.Name,
		CalDAVBaseURL:    req.CalDAVBaseURL,
		Username:         req.Username,
		Password:         req.Password,
		SyncIntervalSecs: req.SyncIntervalSecs,
	}
	id, err := s.db.CreateSource(src)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	created, err := s.db.GetSource(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.eng.RegisterSource(created)
	writeJSON(w, http.StatusCreated, sourceToDTO(created))
}

func (s *Server) updateSource(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	src := &store.Source{
		ID:               id,
		Name:             req.Name,
		CalDAVBaseURL:    req.CalDAVBaseURL,
		Username:         req.Username,
		Password:         req.Password,
		SyncIntervalSecs: req.SyncIntervalSecs,
	}
	if err := s.db.UpdateSource(src); err != nil {
		writeSourceStoreError(w, err)
		return
	}

	updated, err := s.db.GetSource(id)
	if err != nil {
		writeSourceStoreError(w, err)
		return
	}
	s.eng.ReloadSource(id, updated.SyncIntervalSecs)
	writeJSON(w, http.StatusOK, sourceToDTO(updated))
}

func (s *Server) deleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	src, err := s.db.GetSource(id)
	if err != nil {
		writeSourceStoreError(w, err)
		return
	}
	s.eng.RemoveSource(id)
	if err := s.db.DeleteSource(id); err != nil {
		writeSourceStoreError(w, err)
		return
	}
	s.publisher.Remove(src.ICSPath)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) syncSource(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	result, found := s.eng.TriggerSource(id)
	if !found {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	if result == engine.AlreadyRunning {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "sync already running"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "sync started"})
}

func (s *Server) sourceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	src, err := s.db.GetSource(id)
	if err != nil {
		writeSourceStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_synced":      src.LastSynced,
		"last_sync_status": src.LastSyncStatus,
		"last_sync_error":  src.LastSyncError,
	})
}

func (s *Server) sourceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	entries, err := s.db.ListLog("source", id, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) testSource(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	src, err := s.db.GetSource(id)
	if err != nil {
		writeSourceStoreError(w, err)
		return
	}
	if err := s.eng.TestSourceConnection(r.Context(), src); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeSourceStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
