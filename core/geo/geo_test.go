package geo

import (
	"math"
	"testing"
)

func TestDistanceKm_Symmetric(t *testing.T) {
	cases := [][4]float64{
		{6.9271, 79.8612, 6.9350, 79.8500},
		{48.8566, 2.3522, 51.5074, -0.1278},
		{-33.8688, 151.2093, 35.6762, 139.6503},
		{0, 0, 0, 180},
	}
	for _, c := range cases {
		ab := DistanceKm(c[0], c[1], c[2], c[3])
		ba := DistanceKm(c[2], c[3], c[0], c[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("distance not symmetric: %v vs %v for %v", ab, ba, c)
		}
	}
}

func TestDistanceKm_Identity(t *testing.T) {
	if d := DistanceKm(6.9271, 79.8612, 6.9271, 79.8612); d != 0 {
		t.Errorf("expected zero distance, got %v", d)
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Paris to London, roughly 344 km.
	d := DistanceKm(48.8566, 2.3522, 51.5074, -0.1278)
	if d < 330 || d > 350 {
		t.Errorf("unexpected Paris-London distance: %v", d)
	}
}

func TestDistanceKm_SmallOffsets(t *testing.T) {
	// One degree of latitude is roughly 111 km, so 0.01 deg is about 1.11 km.
	d := DistanceKm(6.9271, 79.8612, 6.9371, 79.8612)
	if d < 1.0 || d > 1.2 {
		t.Errorf("unexpected short distance: %v", d)
	}
}
