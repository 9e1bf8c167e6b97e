package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medride/dispatch/core/model"
)

func forwardOf(req RideRequest, excluded string) ForwardRequest {
	return ForwardRequest{RideRequest: req, ExcludedDriver: excluded}
}

func TestForwardRide_ExcludesDriver(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	f.addDriver(t, "d2", true, true, true, 3)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)

	res, err := f.engine.ForwardRide(ctx, forwardOf(req, "d1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, res.Notified, "excluded driver is filtered out even though in range")

	st, err := f.rides.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, st.IsExcluded("d1"))
	assert.Nil(t, st.AssignedDriver)
}

func TestForwardRide_ExclusionsAccumulate(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	f.addDriver(t, "d2", true, true, true, 3)
	f.addDriver(t, "d3", true, true, true, 4)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)

	_, err = f.engine.ForwardRide(ctx, forwardOf(req, "d1"))
	require.NoError(t, err)
	res, err := f.engine.ForwardRide(ctx, forwardOf(req, "d2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d3"}, res.Notified, "exclusions from earlier forwards persist")
}

func TestForwardRide_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	f.addDriver(t, "d2", true, true, true, 3)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)

	first, err := f.engine.ForwardRide(ctx, forwardOf(req, "d1"))
	require.NoError(t, err)
	second, err := f.engine.ForwardRide(ctx, forwardOf(req, "d1"))
	require.NoError(t, err)
	assert.Equal(t, first.Notified, second.Notified, "repeating the same forward is a no-op on the excluded set")
}

func TestForwardRide_UnknownCandidateNoOp(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)

	res, err := f.engine.ForwardRide(ctx, forwardOf(req, "never-heard-of"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, res.Notified)
}

func TestForwardRide_UnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ForwardRide(context.Background(), forwardOf(newRequest("ghost"), "d1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForwardRide_ResetsAssignment(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	f.addDriver(t, "d2", true, true, true, 3)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)
	_, err = f.engine.Accept(ctx, "r1", "d1")
	require.NoError(t, err)

	res, err := f.engine.ForwardRide(ctx, forwardOf(req, "d1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, res.Notified)

	st, err := f.rides.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, st.AssignedDriver, "forward releases the previous assignment")

	// The excluded driver can no longer take the ride back.
	_, err = f.engine.Accept(ctx, "r1", "d1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.engine.Accept(ctx, "r1", "d2")
	assert.NoError(t, err)
}

func TestForwardRide_ExpiredRide(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)

	f.engine.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = f.engine.ForwardRide(ctx, forwardOf(req, "d1"))
	assert.ErrorIs(t, err, ErrRideExpired)
	assert.Empty(t, f.gateway.Sent("tok-d1"), "expired forwards notify nobody")
}

func TestForwardRide_LostRace(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)

	// An accept that lands between the forward's read and its conditional
	// write makes the forward lose.
	rigged := &interceptStore{Store: f.rides}
	eng, err := NewEngine(f.drivers, f.locations, rigged, f.gateway, Config{RadiusKm: 5}, nil, nil, f.engine.log)
	require.NoError(t, err)
	rigged.afterGet = func() {
		rigged.afterGet = nil
		_, aerr := f.engine.Accept(ctx, "r1", "d1")
		require.NoError(t, aerr)
	}

	_, err = eng.ForwardRide(ctx, forwardOf(req, "d1"))
	assert.ErrorIs(t, err, ErrConcurrentModification)

	st, err := f.rides.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, st.AssignedDriver)
	assert.Equal(t, "d1", *st.AssignedDriver, "the accept's write survives")
	assert.False(t, st.IsExcluded("d1"), "the losing forward changed nothing")
}

func TestForwardRide_DriverMovedAway(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", true, true, true, 2)
	f.addDriver(t, "d2", true, true, true, 3)
	ctx := context.Background()

	req := newRequest("r1")
	_, err := f.engine.RequestRide(ctx, req)
	require.NoError(t, err)

	// d2 drove out of range before the forward; eligibility is recomputed
	// from live positions.
	require.NoError(t, f.locations.Update(ctx, "d2", model.LocationRecord{
		Latitude: origin.Lat + 1, Longitude: origin.Lng, ReportedAt: time.Now(),
	}))

	res, err := f.engine.ForwardRide(ctx, forwardOf(req, "d1"))
	require.NoError(t, err)
	assert.Empty(t, res.Notified)
}
