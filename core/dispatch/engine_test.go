package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medride/dispatch/core/driver"
	"github.com/medride/dispatch/core/geo"
	"github.com/medride/dispatch/core/location"
	"github.com/medride/dispatch/core/model"
	"github.com/medride/dispatch/core/ride"
	"github.com/medride/dispatch/infra/logger"
	"github.com/medride/dispatch/infra/notify"
)

// Colombo city center, the origin used throughout the tests.
var origin = model.Coord{Lat: 6.9271, Lng: 79.8612}

type fixture struct {
	engine    *Engine
	drivers   *driver.MemoryRegistry
	locations *location.MemoryStore
	rides     *ride.MemoryStore
	gateway   *notify.MockGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		drivers:   driver.NewMemoryRegistry(),
		locations: location.NewMemoryStore(),
		rides:     ride.NewMemoryStore(),
		gateway:   notify.NewMockGateway(),
	}
	eng, err := NewEngine(f.drivers, f.locations, f.rides, f.gateway, Config{RadiusKm: 5}, nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	f.engine = eng
	return f
}

// addDriver registers a driver profile and, when located is true, a position
// offset north of the origin by approximately km kilometers.
func (f *fixture) addDriver(t *testing.T, uid string, active, enabled, located bool, km float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.drivers.Put(ctx, model.DriverProfile{
		UID: uid, Active: active, Enabled: enabled, NotifyAddress: "tok-" + uid,
	}))
	if located {
		lat := origin.Lat + km/111.195
		require.NoError(t, f.locations.Update(ctx, uid, model.LocationRecord{
			Latitude: lat, Longitude: origin.Lng, ReportedAt: time.Now(),
		}))
	}
}

func newRequest(uid string) RideRequest {
	return RideRequest{
		RequestUID: uid,
		Start:      origin,
		Dest:       model.Coord{Lat: 6.95, Lng: 79.95},
	}
}

func TestRequestRide_EligibleSet(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 4)  // in range
	f.addDriver(t, "d2", true, true, true, 6)  // too far
	f.addDriver(t, "d3", true, false, true, 3) // disabled
	f.addDriver(t, "d4", false, true, true, 3) // off shift
	f.addDriver(t, "d5", true, true, false, 0) // no location

	res, err := f.engine.RequestRide(context.Background(), newRequest("r1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, res.Notified)
	assert.Equal(t, 1, res.Delivered)
	assert.Zero(t, res.Failed)
	assert.Len(t, f.gateway.Sent("tok-d1"), 1)
	assert.Empty(t, f.gateway.Sent("tok-d2"))
}

func TestRequestRide_RadiusBoundaryInclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Place a driver and derive the exact distance so the boundary check
	// uses the same value the engine computes.
	f.addDriver(t, "edge", true, true, true, 4.2)
	snap, err := f.locations.Snapshot(ctx)
	require.NoError(t, err)
	rec := snap["edge"]
	exact := geo.DistanceKm(rec.Latitude, rec.Longitude, origin.Lat, origin.Lng)

	eng, err := NewEngine(f.drivers, f.locations, f.rides, f.gateway, Config{RadiusKm: exact}, nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	res, err := eng.RequestRide(ctx, newRequest("at-boundary"))
	require.NoError(t, err)
	assert.Equal(t, []string{"edge"}, res.Notified, "driver at exactly the radius is eligible")

	eng, err = NewEngine(f.drivers, f.locations, f.rides, f.gateway, Config{RadiusKm: exact - 0.001}, nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	res, err = eng.RequestRide(ctx, newRequest("past-boundary"))
	require.NoError(t, err)
	assert.Empty(t, res.Notified, "driver past the radius is not eligible")
}

func TestRequestRide_CreatesUnassignedState(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)

	_, err := f.engine.RequestRide(context.Background(), newRequest("r1"))
	require.NoError(t, err)

	st, err := f.rides.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Nil(t, st.AssignedDriver)
	assert.Equal(t, origin, st.Start)
	assert.False(t, st.Deadline.IsZero())
}

func TestRequestRide_ZeroCandidates(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.RequestRide(context.Background(), RideRequest{
		RequestUID: "R1",
		Start:      model.Coord{Lat: 6.9, Lng: 79.9},
		Dest:       model.Coord{Lat: 6.95, Lng: 79.95},
	})
	require.NoError(t, err, "zero candidates is a success, not an error")
	assert.Empty(t, res.Notified)
	assert.Equal(t, 0, res.Candidates())

	st, err := f.rides.Get(context.Background(), "R1")
	require.NoError(t, err)
	assert.Nil(t, st.AssignedDriver, "ride state is still created")
}

func TestRequestRide_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RideRequest
	}{
		{"missing uid", RideRequest{Start: origin, Dest: origin}},
		{"bad start", RideRequest{RequestUID: "r1", Start: model.Coord{Lat: 99, Lng: 0}, Dest: origin}},
		{"bad dest", RideRequest{RequestUID: "r1", Start: origin, Dest: model.Coord{Lat: 0, Lng: 999}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.engine.RequestRide(ctx, c.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// Rejected before any side effect.
	_, err := f.rides.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.gateway.Addresses())
}

func TestRequestRide_PartialDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	f.addDriver(t, "d2", true, true, true, 3)
	f.gateway.FailAddrs["tok-d1"] = true

	res, err := f.engine.RequestRide(context.Background(), newRequest("r1"))
	require.NoError(t, err, "partial delivery failure must not fail the call")
	assert.ElementsMatch(t, []string{"d1", "d2"}, res.Notified)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, f.gateway.Sent("tok-d2"), 1)
}

func TestRequestRide_DuplicateUIDClobbers(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	ctx := context.Background()

	_, err := f.engine.RequestRide(ctx, newRequest("r1"))
	require.NoError(t, err)
	_, err = f.engine.Accept(ctx, "r1", "d1")
	require.NoError(t, err)

	_, err = f.engine.RequestRide(ctx, newRequest("r1"))
	require.NoError(t, err)
	st, err := f.rides.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, st.AssignedDriver, "re-request resets the assignment")
}

func TestRequestRide_PayloadContents(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 1)

	_, err := f.engine.RequestRide(context.Background(), newRequest("r1"))
	require.NoError(t, err)

	sent := f.gateway.Sent("tok-d1")
	require.Len(t, sent, 1)
	p := sent[0]
	assert.Equal(t, "Emergency Ride Request", p.Title)
	assert.Equal(t, "r1", p.RequestUID)
	assert.Equal(t, "6.9271", p.StartLat)
	assert.Equal(t, "79.8612", p.StartLng)
	assert.Equal(t, "6.95", p.DestLat)
	assert.Equal(t, "79.95", p.DestLng)
}

func TestAccept(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	ctx := context.Background()

	_, err := f.engine.RequestRide(ctx, newRequest("r1"))
	require.NoError(t, err)

	st, err := f.engine.Accept(ctx, "r1", "d1")
	require.NoError(t, err)
	require.NotNil(t, st.AssignedDriver)
	assert.Equal(t, "d1", *st.AssignedDriver)

	// A second accept loses the race deterministically.
	_, err = f.engine.Accept(ctx, "r1", "d2")
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestAccept_ExpiredRide(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	ctx := context.Background()

	_, err := f.engine.RequestRide(ctx, newRequest("r1"))
	require.NoError(t, err)

	f.engine.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = f.engine.Accept(ctx, "r1", "d1")
	assert.ErrorIs(t, err, ErrRideExpired)
}

func TestNewEngine_NilCollaborator(t *testing.T) {
	f := newFixture(t)
	_, err := NewEngine(nil, f.locations, f.rides, f.gateway, Config{}, nil, nil, logger.NopLogger{})
	assert.Error(t, err)
	_, err = NewEngine(f.drivers, f.locations, f.rides, nil, Config{}, nil, nil, logger.NopLogger{})
	assert.Error(t, err)
}
