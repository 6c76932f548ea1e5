package ppc64

import "github.com/go-delve/ppc64dec/pkg/il"

// Decode decodes w, the instruction located at addr, and reports its
// meaning to e. It returns false without calling e when w is reserved or
// encodes an invalid operand combination.
func Decode(w Word, addr uint64, e Emitter) bool {
	d := DForm(w)
	switch op := w.Primary(); op {
	case 0, 1, 4, 5, 6, 56, 57, 60, 61:
		return false

	case 2, 3: // tdi, twi
		if op == 2 {
			e.Op("tdi")
		} else {
			e.Op("twi")
		}
		e.Imm(d.TO())
		e.Reg(d.RA())
		e.Imm(d.UI())
		e.Lift(unimplemented)

	case 7, 8, 9: // mulli, subfic, dozi
		e.Op([...]string{"mulli", "subfic", "dozi"}[op-7])
		e.Reg(d.RT())
		e.Reg(d.RA())
		e.Imm(d.UI())
		e.Lift(unimplemented)

	case 10, 11:
		return decodeCompareImmediate(w, e)

	case 12, 13: // addic, addic.
		rt, ra, ui := d.RT(), d.RA(), d.UI()
		fw := FlagWriteCA
		if op == 13 {
			e.Op("addic.")
			fw |= FlagWriteCR0
		} else {
			e.Op("addic")
		}
		e.Reg(rt)
		e.Reg(ra)
		e.Imm(ui)
		e.Lift(func(f *il.Function) {
			sum := il.Add(8, imm(SignExtend(16, ui)), reg(ra)).WithFlags(uint32(fw))
			f.Append(setReg(rt, sum))
		})

	case 14, 15: // li, addi, lis, addis
		rt, ra, ui := d.RT(), d.RA(), d.UI()
		v := SignExtend(16, ui)
		name := "i"
		if op == 15 {
			v = SignExtend(32, ui<<16)
			name = "is"
		}
		if ra == 0 {
			e.Op("l" + name)
			e.Reg(rt)
			e.Imm(ui)
			e.Lift(func(f *il.Function) {
				f.Append(setReg(rt, imm(v)))
			})
			break
		}
		e.Op("add" + name)
		e.Reg(rt)
		e.Reg(ra)
		e.Imm(ui)
		e.Lift(func(f *il.Function) {
			f.Append(setReg(rt, il.Add(8, imm(v), reg(ra))))
		})

	case 16:
		return decodeBC(w, addr, e)

	case 17:
		e.Op("sc")
		e.Lift(func(f *il.Function) {
			f.Append(il.SystemCall())
		})

	case 18:
		return decodeB(w, addr, e)

	case 19:
		return decode19(w, addr, e)

	case 20, 21, 22, 23: // rlwimi, rlwinm, rlmi, rlwnm
		m := MForm(w)
		e.Op(rcMnemonic([...]string{"rlwimi", "rlwinm", "rlmi", "rlwnm"}[op-20], m.Rc()))
		e.Reg(m.RA())
		e.Reg(m.RS())
		if op == 21 || op == 20 {
			e.Imm(m.SH())
		} else {
			e.Reg(m.RB())
		}
		e.Imm(m.MB())
		e.Imm(m.ME())
		e.Lift(unimplemented)

	case 24:
		if d.RA() == 0 && d.RS() == 0 && d.UI() == 0 {
			// ori r0, r0, 0 is the preferred no-op
			e.Op("nop")
			e.Lift(func(f *il.Function) {
				f.Append(il.Nop())
			})
			break
		}
		decodeLogicalImmediate(w, "ori", il.Or, false, 0, e)
	case 25:
		decodeLogicalImmediate(w, "oris", il.Or, true, 0, e)
	case 26:
		decodeLogicalImmediate(w, "xori", il.Xor, false, 0, e)
	case 27:
		decodeLogicalImmediate(w, "xoris", il.Xor, true, 0, e)
	case 28:
		decodeLogicalImmediate(w, "andi.", il.And, false, FlagWriteCR0, e)
	case 29:
		decodeLogicalImmediate(w, "andis.", il.And, true, FlagWriteCR0, e)

	case 30:
		return decode30(w, e)

	case 31:
		return decode31(w, e)

	case 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45:
		return decodeMemory(dFormMemory[op-32], d.RT(), d.RA(), d.D(), e)

	case 46, 47: // lmw, stmw
		if op == 46 {
			e.Op("lmw")
		} else {
			e.Op("stmw")
		}
		e.Reg(d.RT())
		e.Disp(d.RA(), d.D())
		e.Lift(unimplemented)

	case 48, 49, 50, 51, 52, 53, 54, 55:
		// Floating point loads and stores. Their register operand is a
		// floating point register, outside the modelled register file.
		e.Op([...]string{"lfs", "lfsu", "lfd", "lfdu", "stfs", "stfsu", "stfd", "stfdu"}[op-48])
		e.Lift(unimplemented)

	case 58:
		return decode58(w, e)

	case 59, 63:
		// Floating point arithmetic is not supported.
		return false

	case 62:
		return decode62(w, e)

	default:
		return false
	}
	return true
}

// rcMnemonic appends the record suffix to base when rc is set.
func rcMnemonic(base string, rc uint64) string {
	if rc != 0 {
		return base + "."
	}
	return base
}

// recordFlags returns the flag write requested by the record bit.
func recordFlags(rc uint64) uint32 {
	if rc != 0 {
		return uint32(FlagWriteCR0)
	}
	return 0
}

// decodeCompareImmediate decodes cmpli (10) and cmpi (11).
func decodeCompareImmediate(w Word, e Emitter) bool {
	d := DForm(w)
	signed := w.Primary() == 11
	bf, l, ra, ui := d.BF(), d.L(), d.RA(), d.UI()
	if signed {
		e.Op("cmpi")
	} else {
		e.Op("cmpli")
	}
	e.Imm(bf)
	e.Imm(l)
	e.Reg(ra)
	e.Imm(ui)
	e.Lift(func(f *il.Function) {
		b := imm(ui)
		if signed {
			b = imm(SignExtend(16, ui))
		}
		liftCompare(f, bf, compareOperand(ra, l, signed), b, signed)
	})
	return true
}

// compareOperand reads ra for a comparison. Unless l is set only the low
// word takes part, extended to 64 bits according to signed.
func compareOperand(ra Reg, l uint64, signed bool) *il.Expr {
	if l != 0 {
		return reg(ra)
	}
	low := il.Register(4, uint32(ra))
	if signed {
		return il.SignExtend(8, low)
	}
	return il.ZeroExtend(8, low)
}

// liftCompare sets condition register field bf from comparing a with b.
// The summary overflow bit of the field is a copy of XER[SO].
func liftCompare(f *il.Function, bf uint64, a, b *il.Expr, signed bool) {
	lt, gt := il.CompareUnsignedLessThan, il.CompareUnsignedGreaterThan
	if signed {
		lt, gt = il.CompareSignedLessThan, il.CompareSignedGreaterThan
	}
	f.Append(il.SetFlag(uint32(CRFlag(bf, CRLT)), lt(8, a, b)))
	f.Append(il.SetFlag(uint32(CRFlag(bf, CRGT)), gt(8, a, b)))
	f.Append(il.SetFlag(uint32(CRFlag(bf, CREQ)), il.CompareEqual(8, a, b)))
	f.Append(il.SetFlag(uint32(CRFlag(bf, CRSO)), flag(FlagXERSO)))
}

// decodeLogicalImmediate decodes the D form logical operations with an
// unsigned immediate, shifted into the upper halfword when shifted is set.
func decodeLogicalImmediate(w Word, name string, op func(int, *il.Expr, *il.Expr) *il.Expr, shifted bool, fw FlagWrite, e Emitter) {
	d := DForm(w)
	ra, rs, ui := d.RA(), d.RS(), d.UI()
	e.Op(name)
	e.Reg(ra)
	e.Reg(rs)
	e.Imm(ui)
	e.Lift(func(f *il.Function) {
		v := ui
		if shifted {
			v <<= 16
		}
		f.Append(setReg(ra, op(8, reg(rs), imm(v))).WithFlags(uint32(fw)))
	})
}

// memoryOp describes a load or store with a displacement operand.
type memoryOp struct {
	name   string
	size   int
	signed bool // sign extend loaded values
	update bool // write the effective address back to the base register
	store  bool
}

// dFormMemory is indexed by primary opcode minus 32.
var dFormMemory = [...]memoryOp{
	{name: "lwz", size: 4},
	{name: "lwzu", size: 4, update: true},
	{name: "lbz", size: 1},
	{name: "lbzu", size: 1, update: true},
	{name: "stw", size: 4, store: true},
	{name: "stwu", size: 4, store: true, update: true},
	{name: "stb", size: 1, store: true},
	{name: "stbu", size: 1, store: true, update: true},
	{name: "lhz", size: 2},
	{name: "lhzu", size: 2, update: true},
	{name: "lha", size: 2, signed: true},
	{name: "lhau", size: 2, signed: true, update: true},
	{name: "sth", size: 2, store: true},
	{name: "sthu", size: 2, store: true, update: true},
}

// decodeMemory decodes a load or store of rt at displacement d from ra.
// Update forms are invalid with ra = 0 and, for loads, with ra = rt.
func decodeMemory(m memoryOp, rt, ra Reg, d uint64, e Emitter) bool {
	if m.update && (ra == 0 || (!m.store && ra == rt)) {
		return false
	}
	e.Op(m.name)
	e.Reg(rt)
	e.Disp(ra, d)
	e.Lift(func(f *il.Function) {
		ea := effectiveAddress(ra, d)
		if m.store {
			f.Append(il.Store(m.size, ea, reg(rt)))
		} else {
			v := il.Load(m.size, ea)
			switch {
			case m.size == 8:
			case m.signed:
				v = il.SignExtend(8, v)
			default:
				v = il.ZeroExtend(8, v)
			}
			f.Append(setReg(rt, v))
		}
		if m.update {
			f.Append(setReg(ra, ea))
		}
	})
	return true
}
