package ppc64

import "github.com/go-delve/ppc64dec/pkg/il"

// decode19 decodes the XL form group, primary opcode 19.
func decode19(w Word, addr uint64, e Emitter) bool {
	switch XLForm(w).XO() {
	case 16:
		return decodeBCLR(w, e)
	case 150:
		e.Op("isync")
		e.Lift(intrinsic(IntrinsicIsync, nil))
	case 528:
		return decodeBCCTR(w, addr, e)
	default:
		e.Undefined()
	}
	return true
}

// decode30 decodes the 64 bit rotate group, primary opcode 30. MD form
// entries occupy two extended opcode values each because the low bit of
// their three bit opcode is the high bit of the shift amount.
func decode30(w Word, e Emitter) bool {
	md := MDForm(w)
	ra, rs, sh, mb := md.RA(), md.RS(), md.SH(), md.MB()
	fw := recordFlags(md.Rc())

	rotated := func() *il.Expr {
		return il.RotateLeft(8, reg(rs), il.Const(1, sh))
	}
	masked := func(f *il.Function, r *il.Expr, mask uint64) {
		f.Append(setReg(ra, il.And(8, r, imm(mask))).WithFlags(fw))
	}

	switch xo := MDSForm(w).XO(); xo {
	case 0, 1:
		e.Op(rcMnemonic("rldicl", md.Rc()))
		e.Reg(ra)
		e.Reg(rs)
		e.Imm(sh)
		e.Imm(mb)
		e.Lift(func(f *il.Function) {
			if sh == 64-mb {
				// srdi ra, rs, mb
				f.Append(setReg(ra, il.LogicalShiftRight(8, reg(rs), il.Const(1, mb))).WithFlags(fw))
				return
			}
			masked(f, rotated(), RotateMask64(uint(mb), 63))
		})

	case 2, 3:
		me := md.ME()
		e.Op(rcMnemonic("rldicr", md.Rc()))
		e.Reg(ra)
		e.Reg(rs)
		e.Imm(sh)
		e.Imm(me)
		e.Lift(func(f *il.Function) {
			masked(f, rotated(), RotateMask64(0, uint(me)))
		})

	case 4, 5:
		e.Op(rcMnemonic("rldic", md.Rc()))
		e.Reg(ra)
		e.Reg(rs)
		e.Imm(sh)
		e.Imm(mb)
		e.Lift(func(f *il.Function) {
			masked(f, rotated(), RotateMask64(uint(mb), uint(63-sh)))
		})

	case 6, 7:
		e.Op(rcMnemonic("rldimi", md.Rc()))
		e.Reg(ra)
		e.Reg(rs)
		e.Imm(sh)
		e.Imm(mb)
		e.Lift(func(f *il.Function) {
			m := RotateMask64(uint(mb), uint(63-sh))
			inserted := il.Or(8, il.And(8, rotated(), imm(m)), il.And(8, reg(ra), imm(^m)))
			f.Append(setReg(ra, inserted).WithFlags(fw))
		})

	case 8, 9:
		mds := MDSForm(w)
		rb, mask := mds.RB(), RotateMask64(uint(mds.MB()), 63)
		if xo == 8 {
			e.Op(rcMnemonic("rldcl", mds.Rc()))
		} else {
			e.Op(rcMnemonic("rldcr", mds.Rc()))
			mask = RotateMask64(0, uint(mds.ME()))
		}
		e.Reg(ra)
		e.Reg(rs)
		e.Reg(rb)
		e.Imm(mds.MB())
		e.Lift(func(f *il.Function) {
			// rotate by the low six bits of rb
			n := il.And(1, il.Register(1, uint32(rb)), il.Const(1, 0x3f))
			masked(f, il.RotateLeft(8, reg(rs), n), mask)
		})

	default:
		return false
	}
	return true
}

// decode58 decodes the DS form loads, primary opcode 58.
func decode58(w Word, e Emitter) bool {
	ds := DSForm(w)
	switch ds.XO() {
	case 0:
		return decodeMemory(memoryOp{name: "ld", size: 8}, ds.RT(), ds.RA(), ds.DS(), e)
	case 1:
		return decodeMemory(memoryOp{name: "ldu", size: 8, update: true}, ds.RT(), ds.RA(), ds.DS(), e)
	case 2:
		return decodeMemory(memoryOp{name: "lwa", size: 4, signed: true}, ds.RT(), ds.RA(), ds.DS(), e)
	}
	return false
}

// decode62 decodes the DS form stores, primary opcode 62.
func decode62(w Word, e Emitter) bool {
	ds := DSForm(w)
	switch ds.XO() {
	case 0:
		return decodeMemory(memoryOp{name: "std", size: 8, store: true}, ds.RS(), ds.RA(), ds.DS(), e)
	case 1:
		return decodeMemory(memoryOp{name: "stdu", size: 8, store: true, update: true}, ds.RS(), ds.RA(), ds.DS(), e)
	}
	return false
}

// intrinsic returns a Lift function emitting intrinsic id that writes
// outputs and reads inputs.
func intrinsic(id Intrinsic, outputs []Reg, inputs ...*il.Expr) func(*il.Function) {
	return func(f *il.Function) {
		var outs []uint32
		for _, r := range outputs {
			outs = append(outs, uint32(r))
		}
		f.Append(il.Intrinsic(outs, uint32(id), inputs...))
	}
}
