// Package serialization stores deformable convolution problems in the
// SafeTensors format.
//
// A problem file holds the operand tensors of one convolution call under
// the names input, weight, offset and, when present, mask and bias. Free-form
// string metadata travels in the header's __metadata__ entry, together with
// a SHA-256 checksum of the data section that is verified on load.
//
// Layout:
//
//	[8 bytes: header size N, uint64 little-endian]
//	[N bytes: JSON header]
//	[tensor data, tensors in name order]
package serialization
