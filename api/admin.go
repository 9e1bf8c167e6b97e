package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/medride/dispatch/core/driver"
	"github.com/medride/dispatch/core/model"
	"github.com/medride/dispatch/core/user"
)

type createDriverBody struct {
	UID             string `json:"uid"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber"`
	AmbulanceNumber string `json:"ambulanceNumber"`
	NotifyAddress   string `json:"notifyAddress"`
	Active          bool   `json:"active"`
	Enabled         bool   `json:"enabled"`
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	var body createDriverBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Username == "" || body.Email == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("username and email are required"))
		return
	}
	if body.UID == "" {
		body.UID = uuid.NewString()
	}
	p := model.DriverProfile{
		UID:             body.UID,
		Username:        body.Username,
		Email:           body.Email,
		PhoneNumber:     body.PhoneNumber,
		AmbulanceNumber: body.AmbulanceNumber,
		NotifyAddress:   body.NotifyAddress,
		Active:          body.Active,
		Enabled:         body.Enabled,
	}
	if err := s.drivers.Put(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	s.log.Infof("driver %s created", p.UID)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	all, err := s.drivers.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleDeleteDriver(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	if err := s.drivers.Delete(r.Context(), uid); err != nil {
		if errors.Is(err, driver.ErrNotFound) {
			writeErrorStatus(w, http.StatusNotFound, err)
			return
		}
		writeError(w, err)
		return
	}
	s.log.Infof("driver %s deleted", uid)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var p user.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	if p.Username == "" || p.Email == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("username and email are required"))
		return
	}
	if p.UID == "" {
		p.UID = uuid.NewString()
	}
	if err := s.users.Put(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	p, err := s.users.Get(r.Context(), mux.Vars(r)["uid"])
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeErrorStatus(w, http.StatusNotFound, err)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	if err := s.users.Delete(r.Context(), uid); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeErrorStatus(w, http.StatusNotFound, err)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
