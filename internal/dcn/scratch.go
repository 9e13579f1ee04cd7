package dcn

import (
	"math"
	"math/bits"
)

// scratchBytes returns the bytes one call allocates for columnBuffers column
// matrices ([Cin*kh*kw, step*OutH*OutW]) plus, when withOnes is set, the ones
// vector ([OutH*OutW]). It fails with a ResourceError when the size overflows
// or exceeds cfg.MaxScratchBytes.
func scratchBytes(cfg Config, geo Geometry, columnBuffers int, withOnes bool) (int64, error) {
	elems, ok := mulChecked(uint64(geo.Channels), uint64(cfg.KernelH), uint64(cfg.KernelW),
		uint64(geo.Step), uint64(geo.OutH), uint64(geo.OutW), uint64(columnBuffers))
	if withOnes {
		elems += uint64(geo.OutH * geo.OutW)
	}
	total, ok2 := mulChecked(elems, uint64(geo.DType.Size()))
	if !ok || !ok2 || total > math.MaxInt64 || total > uint64(math.MaxInt) {
		return 0, &ResourceError{Resource: "column scratch", Bytes: -1, Limit: cfg.MaxScratchBytes}
	}

	n := int64(total)
	if cfg.MaxScratchBytes > 0 && n > cfg.MaxScratchBytes {
		return 0, &ResourceError{Resource: "column scratch", Bytes: n, Limit: cfg.MaxScratchBytes}
	}
	return n, nil
}

// mulChecked multiplies the factors, reporting false on overflow.
func mulChecked(factors ...uint64) (uint64, bool) {
	product := uint64(1)
	for _, f := range factors {
		hi, lo := bits.Mul64(product, f)
		if hi != 0 {
			return 0, false
		}
		product = lo
	}
	return product, true
}
