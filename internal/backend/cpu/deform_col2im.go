package cpu

import (
	"github.com/born-ml/dcn/internal/parallel"
	"github.com/born-ml/dcn/internal/tensor"
)

// DeformCol2Im is the adjoint of DeformIm2Col. Each element of columns is
// multiplied by its mask value (when mask is non-nil) and spread over the
// four lattice neighbours of its sampling point in gradInput, weighted by the
// bilinear weights. gradInput ([Batch, Channels, Height, Width]) is added to,
// not overwritten.
//
// Neighbouring taps and pixels routinely share lattice cells, so when the
// work runs in parallel every write goes through an atomic Accumulator.
func DeformCol2Im[T tensor.Float](gradInput, columns, offset, mask []T, g DeformGeometry, cfg parallel.Config) {
	taps := g.Taps()
	plane := g.Height * g.Width
	outPlane := g.OutH * g.OutW
	colWidth := g.ColumnCols()
	perGroup := g.channelsPerGroup()

	acc := NewAccumulator(gradInput, cfg.Enabled && cfg.NumWorkers > 1)

	parallel.ForRange(g.ColumnRows()*colWidth, func(start, end int) {
		for u := start; u < end; u++ {
			grad := columns[u]
			if grad == 0 {
				continue
			}

			row, col := u/colWidth, u%colWidth
			c, t := row/taps, row%taps
			p, q := t/g.KernelW, t%g.KernelW
			b, pix := col/outPlane, col%outPlane
			i, j := pix/g.OutW, pix%g.OutW
			grp := c / perGroup

			h0, w0 := g.samplingPosition(i, j, p, q)
			off := g.offsetIndex(b, grp, t, i, j)
			y := T(h0) + offset[off]
			x := T(w0) + offset[off+outPlane]

			if mask != nil {
				grad *= mask[g.maskIndex(b, grp, t, i, j)]
			}

			pt := locate(y, x, g.Height, g.Width)
			pt.scatter(acc, (b*g.Channels+c)*plane, grad)
		}
	}, cfg)
}
