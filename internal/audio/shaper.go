package audio

import (
	"math/rand"

	"github.com/vizmute/vizmute/internal/types"
)

// FrameShaper turns a scalar peak level into a per-bar amplitude frame.
// Implementations must map silence to an all-zero frame and scale bar
// heights proportionally with the peak.
type FrameShaper interface {
	Shape(bars int, peak float64) types.AmplitudeFrame
}

// RandomShaper distributes the peak across bars with random coefficients,
// approximating a spectrum without doing spectral analysis.
type RandomShaper struct{}

// Shape returns a frame of bars random values scaled by peak.
func (RandomShaper) Shape(bars int, peak float64) types.AmplitudeFrame {
	frame := types.ZeroFrame(bars)
	if peak <= 0 {
		return frame
	}
	for i := range frame {
		frame[i] = rand.Float64() * peak
	}
	return frame
}
