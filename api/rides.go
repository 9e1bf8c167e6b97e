package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medride/dispatch/core/dispatch"
	"github.com/medride/dispatch/core/model"
)

type rideRequestBody struct {
	RequestUID string  `json:"requestUid"`
	StartLat   float64 `json:"startLat"`
	StartLng   float64 `json:"startLng"`
	DestLat    float64 `json:"destLat"`
	DestLng    float64 `json:"destLng"`
}

func (b rideRequestBody) toRequest() dispatch.RideRequest {
	return dispatch.RideRequest{
		RequestUID: b.RequestUID,
		Start:      model.Coord{Lat: b.StartLat, Lng: b.StartLng},
		Dest:       model.Coord{Lat: b.DestLat, Lng: b.DestLng},
	}
}

type dispatchResponse struct {
	Success    bool     `json:"success"`
	RequestUID string   `json:"requestUid"`
	Notified   []string `json:"notified"`
	Candidates int      `json:"candidates"`
	Delivered  int      `json:"delivered"`
	Failed     int      `json:"failed"`
}

func toDispatchResponse(res dispatch.Result) dispatchResponse {
	return dispatchResponse{
		Success:    true,
		RequestUID: res.RequestUID,
		Notified:   res.Notified,
		Candidates: res.Candidates(),
		Delivered:  res.Delivered,
		Failed:     res.Failed,
	}
}

func (s *Server) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	var body rideRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := s.rides.RequestRide(r.Context(), body.toRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDispatchResponse(res))
}

type forwardRequestBody struct {
	rideRequestBody
	ExcludedDriver string `json:"excludedDriver"`
}

func (s *Server) handleForwardRide(w http.ResponseWriter, r *http.Request) {
	var body forwardRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := s.rides.ForwardRide(r.Context(), dispatch.ForwardRequest{
		RideRequest:    body.toRequest(),
		ExcludedDriver: body.ExcludedDriver,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDispatchResponse(res))
}

// handleAcceptRide assigns the ride to the calling driver. Admins may accept
// on behalf of a driver via the driverUid body field.
func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	driverUID := caller.UID
	if caller.IsAdmin() {
		var body struct {
			DriverUID string `json:"driverUid"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		driverUID = body.DriverUID
	}

	st, err := s.rides.Accept(r.Context(), mux.Vars(r)["uid"], driverUID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"requestUid":     st.RequestUID,
		"assignedDriver": st.AssignedDriver,
	})
}
