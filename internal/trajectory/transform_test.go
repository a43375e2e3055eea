package trajectory

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_RoundTrip(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		tr := Transform{Ref: Pose{
			X:   rng.Float64()*2000 - 1000,
			Y:   rng.Float64()*2000 - 1000,
			Yaw: rng.Float64()*4*math.Pi - 2*math.Pi,
		}}
		p := Point{X: rng.Float64()*400 - 200, Y: rng.Float64()*400 - 200}
		back := tr.LocalToMap(tr.MapToLocal(p))
		assert.InDelta(t, p.X, back.X, 1e-9)
		assert.InDelta(t, p.Y, back.Y, 1e-9)
	}
}

func TestTransform_MapToLocal(t *testing.T) {
	t.Parallel()
	tr := Transform{Ref: Pose{X: 10, Y: 5, Yaw: math.Pi / 2}}

	// A point 3m ahead along +y is 3m ahead in the local frame.
	local := tr.MapToLocal(Point{X: 10, Y: 8})
	assert.InDelta(t, 3, local.X, 1e-12)
	assert.InDelta(t, 0, local.Y, 1e-12)

	// Map +x is to the right of a vehicle heading +y, which is local -y.
	local = tr.MapToLocal(Point{X: 12, Y: 5})
	assert.InDelta(t, 0, local.X, 1e-12)
	assert.InDelta(t, -2, local.Y, 1e-12)
}

func TestPath_ArcLength(t *testing.T) {
	t.Parallel()
	p := Path{{X: 3, Y: 4}, {X: 3, Y: 10}}
	assert.InDelta(t, 11, p.ArcLength(Point{}), 1e-12)
	assert.Zero(t, Path{}.ArcLength(Point{X: 1, Y: 1}))

	zipped := PathFromXY([]float64{1, 2, 3}, []float64{4, 5})
	require.Len(t, zipped, 2)
	assert.Equal(t, []float64{1, 2}, zipped.Xs())
	assert.Equal(t, []float64{4, 5}, zipped.Ys())
}

func TestFitSpline(t *testing.T) {
	t.Parallel()

	t.Run("passes through anchors", func(t *testing.T) {
		t.Parallel()
		anchors := []Point{{X: -1, Y: 0}, {X: 0, Y: 0}, {X: 30, Y: 2}, {X: 60, Y: 4}, {X: 90, Y: 4}}
		s, err := FitSpline(anchors)
		require.NoError(t, err)
		for _, a := range anchors {
			assert.InDelta(t, a.Y, s.At(a.X), 1e-9)
		}
		lo, hi := s.Domain()
		assert.Equal(t, -1.0, lo)
		assert.Equal(t, 90.0, hi)
	})

	t.Run("rejects non-increasing x", func(t *testing.T) {
		t.Parallel()
		_, err := FitSpline([]Point{{X: 0}, {X: 30}, {X: 30}, {X: 60}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsortedAnchors))

		_, err = FitSpline([]Point{{X: 0}, {X: 60}, {X: 30}})
		assert.ErrorIs(t, err, ErrUnsortedAnchors)
	})

	t.Run("too few anchors", func(t *testing.T) {
		t.Parallel()
		_, err := FitSpline([]Point{{X: 0}})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnsortedAnchors))
	})
}
