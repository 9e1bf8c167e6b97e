package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medride/dispatch/core/model"
)

type locationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// handleReportLocation is the last-seen write path. Drivers may only report
// their own position; admins may report for anyone.
func (s *Server) handleReportLocation(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	caller, _ := CallerFrom(r.Context())
	if !caller.IsAdmin() && caller.UID != uid {
		writeErrorStatus(w, http.StatusForbidden, fmt.Errorf("cannot report a location for another driver"))
		return
	}

	var body locationBody
	if !decodeBody(w, r, &body) {
		return
	}
	coord := model.Coord{Lat: body.Latitude, Lng: body.Longitude}
	if err := coord.Validate(); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	rec := model.LocationRecord{
		Latitude:   body.Latitude,
		Longitude:  body.Longitude,
		ReportedAt: time.Now(),
	}
	if err := s.locations.Update(r.Context(), uid, rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleDriverSocket upgrades the connection and registers it as the
// driver's notification channel.
func (s *Server) handleDriverSocket(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	caller, _ := CallerFrom(r.Context())
	if !caller.IsAdmin() && caller.UID != uid {
		writeErrorStatus(w, http.StatusForbidden, fmt.Errorf("cannot open a socket for another driver"))
		return
	}
	if err := s.hub.Handler(uid, w, r); err != nil {
		s.log.Warnf("websocket upgrade for %s: %v", uid, err)
	}
}
