package geocode_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdprice/crowdprice/internal/geocode"
	"github.com/crowdprice/crowdprice/pkg/logger"
)

type stubGeocoder struct {
	loc    geocode.Location
	places []geocode.Place
	err    error
	calls  int
}

func (s *stubGeocoder) Geocode(context.Context, string) (geocode.Location, error) {
	s.calls++
	return s.loc, s.err
}

func (s *stubGeocoder) NearbyPlaces(context.Context, float64, float64, int) ([]geocode.Place, error) {
	s.calls++
	return s.places, s.err
}

func TestChain_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubGeocoder{loc: geocode.Location{Lat: 1, Lon: 2}}
	fallback := &stubGeocoder{loc: geocode.Location{Lat: 9, Lon: 9}}
	chain := geocode.NewChain(primary, fallback, logger.Discard())

	loc, err := chain.Geocode(context.Background(), "somewhere")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, loc.Lat, 1e-9)
	assert.Zero(t, fallback.calls)
}

func TestChain_FallsBackOnError(t *testing.T) {
	t.Parallel()

	primary := &stubGeocoder{err: assert.AnError}
	fallback := &stubGeocoder{loc: geocode.Location{Lat: 9, Lon: 8}}
	chain := geocode.NewChain(primary, fallback, logger.Discard())

	loc, err := chain.Geocode(context.Background(), "somewhere")
	require.NoError(t, err)
	assert.InDelta(t, 9.0, loc.Lat, 1e-9)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestChain_FallsBackOnEmptyResults(t *testing.T) {
	t.Parallel()

	primary := &stubGeocoder{err: geocode.ErrNoResults}
	fallback := &stubGeocoder{places: []geocode.Place{{Name: "Coto"}}}
	chain := geocode.NewChain(primary, fallback, logger.Discard())

	places, err := chain.NearbyPlaces(context.Background(), 0, 0, 100)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Coto", places[0].Name)
}

func TestChain_BothFail(t *testing.T) {
	t.Parallel()

	primary := &stubGeocoder{err: assert.AnError}
	fallback := &stubGeocoder{err: geocode.ErrNoResults}
	chain := geocode.NewChain(primary, fallback, logger.Discard())

	_, err := chain.Geocode(context.Background(), "somewhere")
	assert.ErrorIs(t, err, geocode.ErrNoResults)
}

func TestChain_NilFallbackPassesErrorThrough(t *testing.T) {
	t.Parallel()

	primary := &stubGeocoder{err: assert.AnError}
	chain := geocode.NewChain(primary, nil, logger.Discard())

	_, err := chain.Geocode(context.Background(), "somewhere")
	assert.ErrorIs(t, err, assert.AnError)
}
