package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// plane2x2 is
//
//	1 2
//	3 4
var plane2x2 = []float64{1, 2, 3, 4}

func TestBilinear_LatticePoint(t *testing.T) {
	v, _, _ := Bilinear(plane2x2, 2, 2, 1.0, 0.0)
	assert.Equal(t, 3.0, v)

	v, _, _ = Bilinear(plane2x2, 2, 2, 0.0, 1.0)
	assert.Equal(t, 2.0, v)
}

func TestBilinear_Interior(t *testing.T) {
	// The plane is the linear function 1 + 2y + x, which bilinear
	// interpolation reproduces exactly.
	v, dy, dx := Bilinear(plane2x2, 2, 2, 0.25, 0.5)
	assert.InDelta(t, 2.0, v, 1e-12)
	assert.InDelta(t, 2.0, dy, 1e-12)
	assert.InDelta(t, 1.0, dx, 1e-12)

	v, _, _ = Bilinear(plane2x2, 2, 2, 0.5, 0.5)
	assert.InDelta(t, 2.5, v, 1e-12)
}

func TestBilinear_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		y, x float64
	}{
		{"above", -1, 0.5},
		{"left", 0.5, -1},
		{"below", 2, 0.5},
		{"right", 0.5, 2},
		{"far", -100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, dy, dx := Bilinear(plane2x2, 2, 2, tt.y, tt.x)
			assert.Zero(t, v)
			assert.Zero(t, dy)
			assert.Zero(t, dx)
		})
	}
}

func TestBilinear_PartialNeighbours(t *testing.T) {
	// Half a row above the plane: only the lower corners contribute.
	v, _, _ := Bilinear(plane2x2, 2, 2, -0.5, 0.0)
	assert.InDelta(t, 0.5, v, 1e-12)

	// Half a row below the last row.
	v, _, _ = Bilinear(plane2x2, 2, 2, 1.5, 0.0)
	assert.InDelta(t, 1.5, v, 1e-12)

	// Past the right edge.
	v, _, _ = Bilinear(plane2x2, 2, 2, 0.0, 1.25)
	assert.InDelta(t, 1.5, v, 1e-12)
}

func TestBilinear_DerivativesMatchFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const height, width = 5, 6
	plane := make([]float64, height*width)
	for i := range plane {
		plane[i] = rng.Float64()*2 - 1
	}

	const eps = 1e-6
	for k := 0; k < 50; k++ {
		// Stay away from integer coordinates, where the derivative jumps.
		y := float64(rng.Intn(height+1)-1) + 0.1 + 0.8*rng.Float64()
		x := float64(rng.Intn(width+1)-1) + 0.1 + 0.8*rng.Float64()

		_, dy, dx := Bilinear(plane, height, width, y, x)

		vp, _, _ := Bilinear(plane, height, width, y+eps, x)
		vm, _, _ := Bilinear(plane, height, width, y-eps, x)
		assert.InDelta(t, (vp-vm)/(2*eps), dy, 1e-6, "dy at (%v, %v)", y, x)

		vp, _, _ = Bilinear(plane, height, width, y, x+eps)
		vm, _, _ = Bilinear(plane, height, width, y, x-eps)
		assert.InDelta(t, (vp-vm)/(2*eps), dx, 1e-6, "dx at (%v, %v)", y, x)
	}
}

func TestBilinear_Float32(t *testing.T) {
	plane := []float32{1, 2, 3, 4}
	v, dy, dx := Bilinear(plane, 2, 2, float32(0.25), float32(0.5))
	assert.InDelta(t, 2.0, v, 1e-6)
	assert.InDelta(t, 2.0, dy, 1e-6)
	assert.InDelta(t, 1.0, dx, 1e-6)
}
