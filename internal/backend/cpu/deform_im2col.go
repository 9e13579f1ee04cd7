package cpu

import (
	"github.com/born-ml/dcn/internal/parallel"
	"github.com/born-ml/dcn/internal/tensor"
)

// DeformIm2Col gathers deformed, bilinearly sampled input patches into the
// column matrix.
//
// Layouts (row-major):
//   - input:   [Batch, Channels, Height, Width]
//   - offset:  [Batch, G*2*kh*kw, OutH, OutW]
//   - mask:    [Batch, G*kh*kw, OutH, OutW], or nil for the unmodulated variant
//   - columns: [Channels*kh*kw, Batch*OutH*OutW]
//
// Row (c*kh+p)*kw+q, column (b*OutH+i)*OutW+j receives
// sample(input[b,c], y, x) * mask, where (y, x) is the nominal tap position
// displaced by the tap's offset. Every element of columns is overwritten.
//
// Work is split over (sample, channel) pairs; no two units write the same
// element.
func DeformIm2Col[T tensor.Float](columns, input, offset, mask []T, g DeformGeometry, cfg parallel.Config) {
	taps := g.Taps()
	plane := g.Height * g.Width
	colWidth := g.ColumnCols()
	perGroup := g.channelsPerGroup()

	parallel.ForBatch(g.Batch, g.Channels, func(b, c int) {
		grp := c / perGroup
		img := input[(b*g.Channels+c)*plane : (b*g.Channels+c+1)*plane]

		for p := 0; p < g.KernelH; p++ {
			for q := 0; q < g.KernelW; q++ {
				t := p*g.KernelW + q
				row := columns[(c*taps+t)*colWidth : (c*taps+t+1)*colWidth]

				for i := 0; i < g.OutH; i++ {
					for j := 0; j < g.OutW; j++ {
						h0, w0 := g.samplingPosition(i, j, p, q)
						off := g.offsetIndex(b, grp, t, i, j)
						y := T(h0) + offset[off]
						x := T(w0) + offset[off+g.OutH*g.OutW]

						pt := locate(y, x, g.Height, g.Width)
						val := pt.value(img)
						if mask != nil {
							val *= mask[g.maskIndex(b, grp, t, i, j)]
						}
						row[(b*g.OutH+i)*g.OutW+j] = val
					}
				}
			}
		}
	}, cfg)
}
