package trajectory

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// ErrUnsortedAnchors is returned when anchor x values are not strictly
// increasing in the local frame.
var ErrUnsortedAnchors = errors.New("trajectory: anchor x values must be strictly increasing")

// Spline is a natural cubic y = f(x) through local-frame anchors.
type Spline struct {
	fit  interp.NaturalCubic
	minX float64
	maxX float64
}

// FitSpline fits a spline through anchors, which must already be in the
// local frame and ordered by x.
func FitSpline(anchors []Point) (*Spline, error) {
	if len(anchors) < 2 {
		return nil, fmt.Errorf("trajectory: need at least 2 anchors, got %d", len(anchors))
	}
	xs := make([]float64, len(anchors))
	ys := make([]float64, len(anchors))
	for i, a := range anchors {
		xs[i], ys[i] = a.X, a.Y
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%w: x[%d]=%.3f after x[%d]=%.3f", ErrUnsortedAnchors, i, xs[i], i-1, xs[i-1])
		}
	}
	s := &Spline{minX: xs[0], maxX: xs[len(xs)-1]}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("trajectory: spline fit: %w", err)
	}
	return s, nil
}

// At evaluates the spline. x is expected inside Domain.
func (s *Spline) At(x float64) float64 {
	return s.fit.Predict(x)
}

// Domain returns the fitted x range.
func (s *Spline) Domain() (minX, maxX float64) {
	return s.minX, s.maxX
}
