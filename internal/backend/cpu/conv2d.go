package cpu

import (
	"github.com/born-ml/dcn/internal/parallel"
	"github.com/born-ml/dcn/internal/tensor"
)

// Im2Col gathers the undeformed input patches described by g into columns,
// using the same layout as DeformIm2Col:
//
//	row (c*kh+p)*kw+q, column (b*OutH+i)*OutW+j
//
// Taps that land in the padding read zero. DeformableGroups is ignored.
func Im2Col[T tensor.Float](columns, input []T, g DeformGeometry, cfg parallel.Config) {
	taps := g.Taps()
	plane := g.Height * g.Width
	colWidth := g.ColumnCols()

	parallel.ForBatch(g.Batch, g.Channels, func(b, c int) {
		img := input[(b*g.Channels+c)*plane : (b*g.Channels+c+1)*plane]
		for p := 0; p < g.KernelH; p++ {
			for q := 0; q < g.KernelW; q++ {
				row := columns[(c*taps+p*g.KernelW+q)*colWidth:]
				for i := 0; i < g.OutH; i++ {
					for j := 0; j < g.OutW; j++ {
						h, w := g.samplingPosition(i, j, p, q)
						var v T
						if h >= 0 && h < g.Height && w >= 0 && w < g.Width {
							v = img[h*g.Width+w]
						}
						row[(b*g.OutH+i)*g.OutW+j] = v
					}
				}
			}
		}
	}, cfg)
}

// Conv2D computes a plain strided, padded, dilated convolution by direct
// summation:
//
//	out[b, o, i, j] = Σ_{c,p,q} weight[o, c, p, q] * input[b, c, i*sh-ph+p*dh, j*sw-pw+q*dw]
//
// weight is [outChannels, Channels, kh, kw] and out is
// [Batch, outChannels, OutH, OutW]; out is overwritten. It is the dense
// baseline the deformable kernels reduce to when every offset is zero.
func Conv2D[T tensor.Float](out, input, weight []T, outChannels int, g DeformGeometry, cfg parallel.Config) {
	plane := g.Height * g.Width
	outPlane := g.OutH * g.OutW

	parallel.ForBatch(g.Batch, outChannels, func(b, o int) {
		dst := out[(b*outChannels+o)*outPlane : (b*outChannels+o+1)*outPlane]
		for i := 0; i < g.OutH; i++ {
			for j := 0; j < g.OutW; j++ {
				var sum T
				for c := 0; c < g.Channels; c++ {
					img := input[(b*g.Channels+c)*plane:]
					kernel := weight[(o*g.Channels+c)*g.Taps():]
					for p := 0; p < g.KernelH; p++ {
						for q := 0; q < g.KernelW; q++ {
							h, w := g.samplingPosition(i, j, p, q)
							if h < 0 || h >= g.Height || w < 0 || w >= g.Width {
								continue
							}
							sum += kernel[p*g.KernelW+q] * img[h*g.Width+w]
						}
					}
				}
				dst[i*g.OutW+j] = sum
			}
		}
	}, cfg)
}
