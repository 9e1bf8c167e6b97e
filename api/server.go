// Package api exposes the dispatch engine and its supporting stores over
// HTTP. Routing uses gorilla/mux; every route except the health check sits
// behind the bearer-token middleware.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medride/dispatch/core/dispatch"
	"github.com/medride/dispatch/core/driver"
	"github.com/medride/dispatch/core/history"
	"github.com/medride/dispatch/core/location"
	"github.com/medride/dispatch/core/logger"
	"github.com/medride/dispatch/core/model"
	"github.com/medride/dispatch/core/user"
)

// RideService is the slice of the engine the handlers need.
type RideService interface {
	RequestRide(ctx context.Context, req dispatch.RideRequest) (dispatch.Result, error)
	ForwardRide(ctx context.Context, req dispatch.ForwardRequest) (dispatch.Result, error)
	Accept(ctx context.Context, requestUID, driverUID string) (model.RideState, error)
}

// DriverHub registers driver websocket connections by notify address.
type DriverHub interface {
	Handler(address string, w http.ResponseWriter, r *http.Request) error
}

// Server bundles the handlers and their collaborators.
type Server struct {
	rides     RideService
	drivers   driver.Registry
	locations location.Store
	users     user.Store
	history   history.Store
	hub       DriverHub
	auth      *Authenticator
	log       logger.Logger
}

// NewServer creates a Server. The hub may be nil when websocket delivery is
// not configured.
func NewServer(rides RideService, drivers driver.Registry, locations location.Store, users user.Store, hist history.Store, hub DriverHub, auth *Authenticator, log logger.Logger) *Server {
	return &Server{
		rides:     rides,
		drivers:   drivers,
		locations: locations,
		users:     users,
		history:   hist,
		hub:       hub,
		auth:      auth,
		log:       log,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.auth.Middleware)

	authed.HandleFunc("/rides/request", s.handleRequestRide).Methods(http.MethodPost)
	authed.HandleFunc("/rides/forward", s.handleForwardRide).Methods(http.MethodPost)
	authed.HandleFunc("/rides/{uid}/accept", s.handleAcceptRide).Methods(http.MethodPost)

	authed.HandleFunc("/drivers/{uid}/location", s.handleReportLocation).Methods(http.MethodPut)
	authed.HandleFunc("/history", s.handleAppendHistory).Methods(http.MethodPost)
	authed.HandleFunc("/drivers/{uid}/history", s.handleDriverHistory).Methods(http.MethodGet)
	authed.HandleFunc("/users/{uid}/history", s.handleUserHistory).Methods(http.MethodGet)
	if s.hub != nil {
		authed.HandleFunc("/ws/drivers/{uid}", s.handleDriverSocket).Methods(http.MethodGet)
	}

	admin := authed.NewRoute().Subrouter()
	admin.Use(RequireAdmin)
	admin.HandleFunc("/drivers", s.handleCreateDriver).Methods(http.MethodPost)
	admin.HandleFunc("/drivers", s.handleListDrivers).Methods(http.MethodGet)
	admin.HandleFunc("/drivers/{uid}", s.handleDeleteDriver).Methods(http.MethodDelete)
	admin.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{uid}", s.handleGetUser).Methods(http.MethodGet)
	admin.HandleFunc("/users/{uid}", s.handleDeleteUser).Methods(http.MethodDelete)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
