// Package dispatch matches ride requests to nearby eligible drivers and
// fans the notification out to their devices.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/medride/dispatch/core/driver"
	"github.com/medride/dispatch/core/events"
	"github.com/medride/dispatch/core/location"
	"github.com/medride/dispatch/core/logger"
	coremetrics "github.com/medride/dispatch/core/metrics"
	"github.com/medride/dispatch/core/model"
	"github.com/medride/dispatch/core/notify"
	"github.com/medride/dispatch/core/ride"
	"github.com/medride/dispatch/internal/eventbus"
)

// RideRequest is the input of RequestRide.
type RideRequest struct {
	RequestUID string
	Start      model.Coord
	Dest       model.Coord
}

// ForwardRequest is the input of ForwardRide. ExcludedDriver is the driver
// that declined or failed to respond and must never be re-notified for this
// request.
type ForwardRequest struct {
	RideRequest
	ExcludedDriver string
}

// Result acknowledges a dispatch. Notified lists the driver uids whose
// devices a notification was submitted for; an empty list is a valid
// outcome, not an error.
type Result struct {
	RequestUID string   `json:"request_uid"`
	Notified   []string `json:"notified"`
	Delivered  int      `json:"delivered"`
	Failed     int      `json:"failed"`
}

// Candidates reports how many drivers were eligible.
func (r Result) Candidates() int { return len(r.Notified) }

// Engine orchestrates eligibility filtering, ride state transitions and
// notification fan-out. All collaborators are injected so tests can swap in
// doubles.
type Engine struct {
	drivers   driver.Registry
	locations location.Store
	rides     ride.Store
	gateway   notify.Gateway
	cfg       Config
	sink      coremetrics.Sink
	bus       eventbus.EventBus
	log       logger.Logger
	now       func() time.Time
}

// NewEngine creates an Engine. The sink and bus may be nil.
func NewEngine(drivers driver.Registry, locations location.Store, rides ride.Store, gateway notify.Gateway, cfg Config, sink coremetrics.Sink, bus eventbus.EventBus, log logger.Logger) (*Engine, error) {
	if drivers == nil || locations == nil || rides == nil || gateway == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil collaborator provided to NewEngine")
	}
	cfg.SetDefaults()
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Engine{
		drivers:   drivers,
		locations: locations,
		rides:     rides,
		gateway:   gateway,
		cfg:       cfg,
		sink:      sink,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}, nil
}

// RequestRide creates the assignment record for a new ride request and
// notifies every eligible driver. The acknowledgement is fire-and-forget:
// it reports submission outcomes only and never waits for a driver to
// accept. A request uid colliding with an existing record overwrites it.
func (e *Engine) RequestRide(ctx context.Context, req RideRequest) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	eligible, err := e.eligibleDrivers(ctx, req.Start, nil)
	if err != nil {
		return Result{}, err
	}

	now := e.now()
	st := model.RideState{
		RequestUID:     req.RequestUID,
		Start:          req.Start,
		Dest:           req.Dest,
		AssignedDriver: nil,
		Deadline:       now.Add(e.cfg.RideTTL()),
		CreatedAt:      now,
	}
	if err := e.rides.Create(ctx, st); err != nil {
		return Result{}, fmt.Errorf("persist ride state: %w", err)
	}

	e.publish(events.RideEvent{RequestUID: req.RequestUID, Start: req.Start, Dest: req.Dest, Candidates: len(eligible)})
	return e.fanOut(ctx, st, eligible, false), nil
}

// ForwardRide re-broadcasts an existing request to the recomputed eligible
// set, excluding the given driver and every driver excluded by an earlier
// forward. The assignment is reset to unassigned through a conditional
// update: if another writer assigned a driver between the read and the
// write, the forward fails with ErrConcurrentModification and performs no
// notification.
func (e *Engine) ForwardRide(ctx context.Context, req ForwardRequest) (Result, error) {
	if err := validateRequest(req.RideRequest); err != nil {
		return Result{}, err
	}

	st, err := e.rides.Get(ctx, req.RequestUID)
	if err != nil {
		return Result{}, err
	}
	if st.Expired(e.now()) {
		return Result{}, ErrRideExpired
	}

	st, err = e.rides.CompareAndSwap(ctx, req.RequestUID, st.AssignedDriver, func(s *model.RideState) {
		s.AssignedDriver = nil
		s.Excluded = s.Exclude(req.ExcludedDriver)
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			casConflicts.Inc()
		}
		return Result{}, err
	}
	if req.ExcludedDriver != "" {
		e.publish(events.ExclusionEvent{RequestUID: req.RequestUID, DriverUID: req.ExcludedDriver})
	}

	eligible, err := e.eligibleDrivers(ctx, req.Start, st.Excluded)
	if err != nil {
		return Result{}, err
	}

	e.publish(events.RideEvent{RequestUID: req.RequestUID, Start: req.Start, Dest: req.Dest, Forwarded: true, Candidates: len(eligible)})
	return e.fanOut(ctx, st, eligible, true), nil
}

// Accept assigns the ride to the given driver. The transition only succeeds
// when the ride is still unassigned and unexpired; a racing forward or a
// second accept loses with ErrConcurrentModification.
func (e *Engine) Accept(ctx context.Context, requestUID, driverUID string) (model.RideState, error) {
	if requestUID == "" || driverUID == "" {
		return model.RideState{}, validationError("request uid and driver uid are required")
	}
	st, err := e.rides.Get(ctx, requestUID)
	if err != nil {
		return model.RideState{}, err
	}
	if st.Expired(e.now()) {
		return model.RideState{}, ErrRideExpired
	}
	if st.IsExcluded(driverUID) {
		return model.RideState{}, validationError("driver %s was excluded from request %s", driverUID, requestUID)
	}
	st, err = ride.Assign(ctx, e.rides, requestUID, driverUID)
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			casConflicts.Inc()
		}
		return model.RideState{}, err
	}
	return st, nil
}

// eligibleDrivers joins the registry with the location index. A driver is
// eligible when active, enabled, located within the radius of the origin and
// not excluded. The radius boundary is inclusive, which Near guarantees.
func (e *Engine) eligibleDrivers(ctx context.Context, origin model.Coord, excluded map[string]struct{}) ([]model.DriverProfile, error) {
	all, err := e.drivers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	located, err := e.locations.Near(ctx, origin, e.cfg.RadiusKm)
	if err != nil {
		return nil, fmt.Errorf("location query: %w", err)
	}

	var eligible []model.DriverProfile
	for _, d := range all {
		if !d.Dispatchable() {
			continue
		}
		if _, skip := excluded[d.UID]; skip {
			continue
		}
		if _, ok := located[d.UID]; !ok {
			// Unknown location means ineligible, never an error.
			continue
		}
		eligible = append(eligible, d)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].UID < eligible[j].UID })
	return eligible, nil
}

// fanOut submits one notification per eligible driver concurrently and
// collects per-address outcomes. Individual failures are absorbed: they are
// logged and counted but never fail the dispatch.
func (e *Engine) fanOut(ctx context.Context, st model.RideState, eligible []model.DriverProfile, forwarded bool) Result {
	res := Result{RequestUID: st.RequestUID, Notified: make([]string, 0, len(eligible))}
	for _, d := range eligible {
		res.Notified = append(res.Notified, d.UID)
	}
	if len(eligible) == 0 {
		emptyCandidates.Inc()
		e.log.Warnf("no eligible drivers for request %s", st.RequestUID)
		return res
	}

	payload := notify.NewRidePayload(st.RequestUID, st.Start, st.Dest)
	fwd := "false"
	if forwarded {
		fwd = "true"
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		recs []coremetrics.DeliveryRecord
	)
	update := func(d model.DriverProfile, err error, dur time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed++
			deliveryFailures.Inc()
			e.log.Warnf("notify %s (%s): %v", d.UID, d.NotifyAddress, err)
		} else {
			res.Delivered++
		}
		driversNotified.WithLabelValues(fwd).Inc()
		fanoutLatency.WithLabelValues(fwd).Observe(dur.Seconds())
		recs = append(recs, coremetrics.DeliveryRecord{
			RequestUID: st.RequestUID,
			DriverUID:  d.UID,
			Address:    d.NotifyAddress,
			Forwarded:  forwarded,
			Delivered:  err == nil,
			Latency:    dur,
			Time:       e.now(),
		})
		e.publish(events.DeliveryEvent{
			RequestUID: st.RequestUID,
			DriverUID:  d.UID,
			Address:    d.NotifyAddress,
			Err:        err,
			Latency:    dur,
		})
	}

	for _, d := range eligible {
		wg.Add(1)
		go func(d model.DriverProfile) {
			defer wg.Done()
			start := time.Now()
			sendCtx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout())
			defer cancel()
			err := e.gateway.Send(sendCtx, d.NotifyAddress, payload)
			update(d, err, time.Since(start))
		}(d)
	}
	wg.Wait()

	if err := e.sink.RecordDeliveries(recs); err != nil {
		e.log.Errorf("metrics error: %v", err)
	}
	e.log.Infof("request %s: notified %d drivers (%d failed)", st.RequestUID, len(eligible), res.Failed)
	return res
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func validateRequest(req RideRequest) error {
	if req.RequestUID == "" {
		return validationError("request uid is required")
	}
	if err := req.Start.Validate(); err != nil {
		return validationError("start: %v", err)
	}
	if err := req.Dest.Validate(); err != nil {
		return validationError("dest: %v", err)
	}
	return nil
}
