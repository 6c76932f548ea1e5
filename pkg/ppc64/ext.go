package ppc64

import "fmt"

// SignExtend extends the width bit field v to 64 bits. Supported widths are
// 16, 26 and 32. Bits of v above width are left untouched.
func SignExtend(width uint, v uint64) uint64 {
	var high uint64
	switch width {
	case 16:
		high = 0xffffffffffff0000
	case 26:
		high = 0xfffffffffc000000
	case 32:
		high = 0xffffffff00000000
	default:
		panic(fmt.Sprintf("unsupported sign extension width %d", width))
	}
	if v&(1<<(width-1)) != 0 {
		return v | high
	}
	return v
}

// SignExtend32 extends the width bit field v to 32 bits, for destinations
// that are 32 bit subregisters. Supported widths are 16, 26 and 32.
func SignExtend32(width uint, v uint32) uint32 {
	var high uint32
	switch width {
	case 16:
		high = 0xffff0000
	case 26:
		high = 0xfc000000
	case 32:
		return v
	default:
		panic(fmt.Sprintf("unsupported sign extension width %d", width))
	}
	if v&(1<<(width-1)) != 0 {
		return v | high
	}
	return v
}

// RotateMask64 returns the mask selecting bits mb through me inclusive, in
// big-endian bit numbering (bit 0 is the most significant). When mb > me the
// selection wraps past bit 63 back to bit 0.
func RotateMask64(mb, me uint) uint64 {
	mb &= 63
	me &= 63
	begin := ^uint64(0) >> mb
	end := ^uint64(0) << (63 - me)
	if mb <= me {
		return begin & end
	}
	return begin | end
}
