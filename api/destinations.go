package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RobbyV2/caldav-to-ics/engine"
	"github.com/RobbyV2/caldav-to-ics/store"
)

type destinationDTO struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	RemoteICSURL     string     `json:"remote_ics_url"`
	CalDAVBaseURL    string     `json:"caldav_base_url"`
	CalendarName     string     `json:"calendar_name"`
	Username         string     `json:"username"`
	SyncIntervalSecs int        `json:"sync_interval_secs"`
	SyncAll          bool       `json:"sync_all"`
	KeepLocal        bool       `json:"keep_local"`
	LastSynced       *time.Time `json:"last_synced"`
	LastSyncStatus   string     `json:"last_sync_status"`
	LastSyncError    *string    `json:"last_sync_error"`
	CreatedAt        time.Time  `json:"created_at"`
}

func destinationToDTO(d *store.Destination) destinationDTO {
	return destinationDTO{
		ID:               d.ID,
		Name:             d.Name,
		RemoteICSURL:     d.RemoteICSURL,
		CalDAVBaseURL:    d.CalDAVBaseURL,
		CalendarName:     d.CalendarName,
		Username:         d.Username,
		SyncIntervalSecs: d.SyncIntervalSecs,
		SyncAll:          d.SyncAll,
		KeepLocal:        d.KeepLocal,
		LastSynced:       d.LastSynced,
		LastSyncStatus:   d.LastSyncStatus,
		LastSyncError:    d.LastSyncError,
		CreatedAt:        d.CreatedAt,
	}
}

type destinationRequest struct {
	Name             string `json:"name"`
	RemoteICSURL     string `json:"remote_ics_url"`
	CalDAVBaseURL    string `json:"caldav_base_url"`
	CalendarName     string `json:"calendar_name"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	SyncIntervalSecs int    `json:"sync_interval_secs"`
	SyncAll          bool   `json:"sync_all"`
	KeepLocal        bool   `json:"keep_local"`
}

func (s *Server) listDestinations(w http.ResponseWriter, r *http.Request) {
	dests, err := s.db.ListDestinations()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]destinationDTO, 0, len(dests))
	for _, d := range dests {
		dtos = append(dtos, destinationToDTO(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"destinations": dtos})
}

func (s *Server) createDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SyncIntervalSecs < 0 {
		writeError(w, http.StatusBadRequest, "sync_interval_secs must be >= 0")
		return
	}

	dst := &store.Destination{
		Name:             req.Name,
		RemoteICSURL:     req.RemoteICSURL,
		CalDAVBaseURL:    req.CalDAVBaseURL,
		CalendarName:     req.CalendarName,
		Username:         req.Username,
		Password:         req.Password,
		SyncIntervalSecs: req.SyncIntervalSecs,
		SyncAll:          req.SyncAll,
		KeepLocal:        req.KeepLocal,
	}
	id, err := s.db.CreateDestination(dst)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	created, err := s.db.GetDestination(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.eng.RegisterDestination(created)
	writeJSON(w, http.StatusCreated, destinationToDTO(created))
}

func (s *Server) updateDestination(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req destinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dst := &store.Destination{
		ID:               id,
		Name:             req.Name,
		RemoteICSURL:     req.RemoteICSURL,
		CalDAVBaseURL:    req.CalDAVBaseURL,
		CalendarName:     req.CalendarName,
		Username:         req.Username,
		Password:         req.Password,
		SyncIntervalSecs: req.SyncIntervalSecs,
		SyncAll:          req.SyncAll,
		KeepLocal:        req.KeepLocal,
	}
	if err := s.db.UpdateDestination(dst); err != nil {
		writeDestinationStoreError(w, err)
		return
	}

	updated, err := s.db.GetDestination(id)
	if err != nil {
		writeDestinationStoreError(w, err)
		return
	}
	s.eng.ReloadDestination(id, updated.SyncIntervalSecs)
	writeJSON(w, http.StatusOK, destinationToDTO(updated))
}

func (s *Server) deleteDestination(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.eng.RemoveDestination(id)
	if err := s.db.DeleteDestination(id); err != nil {
		writeDestinationStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) syncDestination(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	result, found := s.eng.TriggerDestination(id)
	if !found {
		writeError(w, http.StatusNotFound, "destination not found")
		return
	}
	if result == engine.AlreadyRunning {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "sync already running"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "sync started"})
}

func (s *Server) destinationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	dst, err := s.db.GetDestination(id)
	if err != nil {
		writeDestinationStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_synced":      dst.LastSynced,
		"last_sync_status": dst.LastSyncStatus,
		"last_sync_error":  dst.LastSyncError,
	})
}

func (s *Server) destinationHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	entries, err := s.db.ListLog("destination", id, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) testDestination(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	dst, err := s.db.GetDestination(id)
	if err != nil {
		writeDestinationStoreError(w, err)
		return
	}
	if err := s.eng.TestDestinationConnection(r.Context(), dst); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeDestinationStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "destination not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
