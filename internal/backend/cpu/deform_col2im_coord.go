package cpu

import (
	"github.com/born-ml/dcn/internal/parallel"
	"github.com/born-ml/dcn/internal/tensor"
)

// DeformCol2ImCoord computes the gradient of the gathered columns with
// respect to the sampling offsets and, when mask is non-nil, the mask.
//
// For every (sample, group, tap, pixel) it reduces over the group's channels:
//
//	gradOffset[Δy] = Σ_c columns[row, col] * ∂sample/∂y * mask
//	gradOffset[Δx] = Σ_c columns[row, col] * ∂sample/∂x * mask
//	gradMask       = Σ_c columns[row, col] * sample
//
// gradOffset has the offset layout and gradMask the mask layout (see
// DeformIm2Col). Each entry is written exactly once, so the outputs need no
// initialisation. gradMask is ignored when mask is nil.
func DeformCol2ImCoord[T tensor.Float](gradOffset, gradMask, columns, input, offset, mask []T, g DeformGeometry, cfg parallel.Config) {
	taps := g.Taps()
	plane := g.Height * g.Width
	outPlane := g.OutH * g.OutW
	colWidth := g.ColumnCols()
	perGroup := g.channelsPerGroup()

	units := g.Batch * g.DeformableGroups * taps * outPlane
	parallel.For(units, func(u int) {
		pix := u % outPlane
		t := (u / outPlane) % taps
		grp := (u / (outPlane * taps)) % g.DeformableGroups
		b := u / (outPlane * taps * g.DeformableGroups)
		i, j := pix/g.OutW, pix%g.OutW
		p, q := t/g.KernelW, t%g.KernelW

		h0, w0 := g.samplingPosition(i, j, p, q)
		off := g.offsetIndex(b, grp, t, i, j)
		y := T(h0) + offset[off]
		x := T(w0) + offset[off+outPlane]
		pt := locate(y, x, g.Height, g.Width)

		col := b*outPlane + pix
		var gy, gx, gm T
		for c := grp * perGroup; c < (grp+1)*perGroup; c++ {
			grad := columns[(c*taps+t)*colWidth+col]
			img := input[(b*g.Channels+c)*plane : (b*g.Channels+c+1)*plane]

			dy, dx := pt.gradient(img)
			gy += grad * dy
			gx += grad * dx
			if mask != nil {
				gm += grad * pt.value(img)
			}
		}

		if mask != nil {
			m := mask[g.maskIndex(b, grp, t, i, j)]
			gy *= m
			gx *= m
			gradMask[g.maskIndex(b, grp, t, i, j)] = gm
		}
		gradOffset[off] = gy
		gradOffset[off+outPlane] = gx
	}, cfg)
}
