package cpu

// DeformGeometry describes one batch chunk processed by the deformable
// im2col family. All sizes are positive and already validated by the caller;
// the kernels trust them.
type DeformGeometry struct {
	Batch    int // samples in the chunk
	Channels int
	Height   int
	Width    int

	KernelH, KernelW     int
	PadH, PadW           int
	StrideH, StrideW     int
	DilationH, DilationW int

	OutH, OutW int

	DeformableGroups int
}

// Taps returns kh*kw.
func (g DeformGeometry) Taps() int {
	return g.KernelH * g.KernelW
}

// ColumnRows returns the number of rows in the column matrix (Cin*kh*kw).
func (g DeformGeometry) ColumnRows() int {
	return g.Channels * g.Taps()
}

// ColumnCols returns the number of columns in the column matrix (chunk*Hout*Wout).
func (g DeformGeometry) ColumnCols() int {
	return g.Batch * g.OutH * g.OutW
}

// channelsPerGroup returns Cin/G.
func (g DeformGeometry) channelsPerGroup() int {
	return g.Channels / g.DeformableGroups
}

// offsetIndex returns the position of the Δy entry of tap t in group grp for
// output pixel (i, j) of sample b. The Δx entry follows one plane later.
func (g DeformGeometry) offsetIndex(b, grp, t, i, j int) int {
	plane := g.OutH * g.OutW
	channel := (grp*g.Taps() + t) * 2
	return (b*g.DeformableGroups*2*g.Taps()+channel)*plane + i*g.OutW + j
}

// maskIndex returns the position of the mask entry of tap t in group grp for
// output pixel (i, j) of sample b.
func (g DeformGeometry) maskIndex(b, grp, t, i, j int) int {
	plane := g.OutH * g.OutW
	channel := grp*g.Taps() + t
	return (b*g.DeformableGroups*g.Taps()+channel)*plane + i*g.OutW + j
}

// samplingPosition returns the undeformed input coordinate of tap (p, q) for
// output pixel (i, j).
func (g DeformGeometry) samplingPosition(i, j, p, q int) (int, int) {
	return i*g.StrideH - g.PadH + p*g.DilationH, j*g.StrideW - g.PadW + q*g.DilationW
}
