package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/dcn/internal/parallel"
)

// TestConv2D_BasicForward tests a 2x2 diagonal kernel on a 3x3 image.
func TestConv2D_BasicForward(t *testing.T) {
	// 1 2 3
	// 4 5 6
	// 7 8 9
	input := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	// 1 0
	// 0 1
	weight := []float32{1, 0, 0, 1}

	g := geometry(1, 1, 3, 3, 2, 1, 0, 1, 1)
	out := make([]float32, g.OutH*g.OutW)
	Conv2D(out, input, weight, 1, g, parallel.Sequential())

	assert.Equal(t, []float32{6, 8, 12, 14}, out)
}

func TestConv2D_Padding(t *testing.T) {
	input := []float64{1, 2, 3, 4}
	weight := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}

	// Box filter with one pixel of zero padding sums the whole 2x2 image at
	// every output position.
	g := geometry(1, 1, 2, 2, 3, 1, 1, 1, 1)
	out := make([]float64, g.OutH*g.OutW)
	Conv2D(out, input, weight, 1, g, parallel.Sequential())

	assert.Equal(t, []float64{10, 10, 10, 10}, out)
}

func TestConv2D_MatchesIm2ColGemm(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	g := geometry(2, 3, 7, 6, 3, 2, 1, 2, 1)
	const outChannels = 4

	input := randomSlice(rng, g.Batch*g.Channels*g.Height*g.Width, -1, 1)
	weight := randomSlice(rng, outChannels*g.ColumnRows(), -1, 1)

	want := make([]float64, g.Batch*outChannels*g.OutH*g.OutW)
	Conv2D(want, input, weight, outChannels, g, parallel.DefaultConfig())

	columns := make([]float64, g.ColumnRows()*g.ColumnCols())
	Im2Col(columns, input, g, parallel.DefaultConfig())

	outPlane := g.OutH * g.OutW
	colM := NewMatrix(g.ColumnRows(), g.ColumnCols(), columns)
	w := NewMatrix(outChannels, g.ColumnRows(), weight)
	got := make([]float64, len(want))
	for b := 0; b < g.Batch; b++ {
		dst := NewMatrix(outChannels, outPlane, got[b*outChannels*outPlane:])
		Gemm(false, false, 1, w, colM.ColumnBlock(b*outPlane, outPlane), 0, dst)
	}

	assert.InDeltaSlice(t, want, got, 1e-12)
}
