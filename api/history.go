package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medride/dispatch/core/history"
)

var (
	errRecordOtherDriver = errors.New("cannot record a ride for another driver")
	errHistoryUIDs       = errors.New("userUid and driverUid are required")
)

// historyEntry is one history record joined with the counterpart's profile,
// the two-step lookup the mobile clients render.
type historyEntry struct {
	Date       time.Time `json:"date"`
	DriverUID  string    `json:"driverUid"`
	DriverName string    `json:"driverName,omitempty"`
	UserUID    string    `json:"userUid"`
	UserName   string    `json:"userName,omitempty"`
}

func (s *Server) joinHistory(ctx context.Context, recs []history.Record) []historyEntry {
	out := make([]historyEntry, 0, len(recs))
	for _, rec := range recs {
		e := historyEntry{Date: rec.Date, DriverUID: rec.DriverUID, UserUID: rec.UserUID}
		if d, err := s.drivers.Get(ctx, rec.DriverUID); err == nil {
			e.DriverName = d.Username
		}
		if u, err := s.users.Get(ctx, rec.UserUID); err == nil {
			e.UserName = u.Username
		}
		out = append(out, e)
	}
	return out
}

type appendHistoryBody struct {
	UserUID   string    `json:"userUid"`
	DriverUID string    `json:"driverUid"`
	Date      time.Time `json:"date"`
}

// handleAppendHistory records a completed ride. Drivers may only record
// rides they drove.
func (s *Server) handleAppendHistory(w http.ResponseWriter, r *http.Request) {
	var body appendHistoryBody
	if !decodeBody(w, r, &body) {
		return
	}
	caller, _ := CallerFrom(r.Context())
	if caller.Role == RoleDriver && body.DriverUID != caller.UID {
		writeErrorStatus(w, http.StatusForbidden, errRecordOtherDriver)
		return
	}
	if body.UserUID == "" || body.DriverUID == "" {
		writeErrorStatus(w, http.StatusBadRequest, errHistoryUIDs)
		return
	}
	if body.Date.IsZero() {
		body.Date = time.Now()
	}
	rec := history.Record{Date: body.Date, UserUID: body.UserUID, DriverUID: body.DriverUID}
	if err := s.history.Append(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDriverHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.history.ByDriver(r.Context(), mux.Vars(r)["uid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.joinHistory(r.Context(), recs))
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.history.ByUser(r.Context(), mux.Vars(r)["uid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.joinHistory(r.Context(), recs))
}
