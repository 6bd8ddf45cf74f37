// internal/decode/wordswap.go
package decode

import "math"

// Float32WordSwapped decodes a raw 32-bit value read as two registers
// (first register in the high half) from a device that transmits IEEE754
// single precision values low word first (CDAB layout).
//
// Total over the 32-bit domain: NaN and Inf bit patterns are returned unchanged.
func Float32WordSwapped(raw uint32) float32 {
	return math.Float32frombits(SwapWords(raw))
}

// SwapWords exchanges the high and low 16-bit halves of v.
func SwapWords(v uint32) uint32 {
	return v<<16 | v>>16
}

// Raw32 joins two registers as transmitted: regs[0] high, regs[1] low.
// Missing registers are treated as zero.
func Raw32(regs []uint16) uint32 {
	var hi, lo uint16
	if len(regs) > 0 {
		hi = regs[0]
	}
	if len(regs) > 1 {
		lo = regs[1]
	}
	return uint32(hi)<<16 | uint32(lo)
}

// EncodeWordSwapped is the inverse of Float32WordSwapped: it returns the two
// registers a word-swapped device would transmit for f.
func EncodeWordSwapped(f float32) [2]uint16 {
	bits := math.Float32bits(f)
	return [2]uint16{uint16(bits), uint16(bits >> 16)}
}
