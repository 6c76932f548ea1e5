package ppc64

import "github.com/go-delve/ppc64dec/pkg/il"

// Special purpose registers with dedicated mnemonics.
const (
	sprXER = 1
	sprLR  = 8
	sprCTR = 9
)

var sprMnemonics = map[uint64]string{
	sprXER: "xer",
	sprLR:  "lr",
	sprCTR: "ctr",
}

// operandShape lists the display operands of an unmodelled group 31
// instruction.
type operandShape uint8

const (
	shapeNone operandShape = iota
	shapeTAB               // rt, ra, rb
	shapeASB               // ra, rs, rb
	shapeAS                // ra, rs
	shapeAB                // ra, rb
	shapeT                 // rt
	shapeTrap              // to, ra, rb
)

type unmodelled struct {
	name  string
	shape operandShape
	rc    bool // the record bit selects a dotted mnemonic
}

// group31Unmodelled holds the group 31 instructions that are recognized
// but lifted as unimplemented. Keys are the ten bit X form extended opcode,
// XO form instructions appear twice, with and without OE.
var group31Unmodelled = map[uint32]unmodelled{
	4:   {"tw", shapeTrap, false},
	9:   {"mulhdu", shapeTAB, true},
	521: {"mulhdu", shapeTAB, true},
	11:  {"mulhwu", shapeTAB, true},
	523: {"mulhwu", shapeTAB, true},
	19:  {"mfcr", shapeT, false},
	20:  {"lwarx", shapeTAB, false},
	21:  {"ldx", shapeTAB, false},
	23:  {"lwzx", shapeTAB, false},
	24:  {"slw", shapeASB, true},
	26:  {"cntlzw", shapeAS, true},
	27:  {"sld", shapeASB, true},
	53:  {"ldux", shapeTAB, false},
	54:  {"dcbst", shapeAB, false},
	55:  {"lwzux", shapeTAB, false},
	58:  {"cntlzd", shapeAS, true},
	60:  {"andc", shapeASB, true},
	68:  {"td", shapeTrap, false},
}

func (u unmodelled) emit(w Word, e Emitter) {
	x := XForm(w)
	if u.rc {
		e.Op(rcMnemonic(u.name, x.Rc()))
	} else {
		e.Op(u.name)
	}
	switch u.shape {
	case shapeTAB:
		e.Reg(x.RT())
		e.Reg(x.RA())
		e.Reg(x.RB())
	case shapeASB:
		e.Reg(x.RA())
		e.Reg(x.RS())
		e.Reg(x.RB())
	case shapeAS:
		e.Reg(x.RA())
		e.Reg(x.RS())
	case shapeAB:
		e.Reg(x.RA())
		e.Reg(x.RB())
	case shapeT:
		e.Reg(x.RT())
	case shapeTrap:
		e.Imm(x.TO())
		e.Reg(x.RA())
		e.Reg(x.RB())
	}
	e.Lift(unimplemented)
}

// xoMnemonic appends the overflow and record suffixes of an XO form
// instruction to base.
func xoMnemonic(base string, w Word) string {
	x := XOForm(w)
	if x.OE() != 0 {
		base += "o"
	}
	return rcMnemonic(base, x.Rc())
}

// decode31 decodes the X, XO and XFX form group, primary opcode 31.
func decode31(w Word, e Emitter) bool {
	x := XForm(w)
	switch xo := x.XO(); xo {
	case 0, 32: // cmp, cmpl
		signed := xo == 0
		if signed {
			e.Op("cmp")
		} else {
			e.Op("cmpl")
		}
		bf, l, ra, rb := x.BF(), x.L(), x.RA(), x.RB()
		e.Imm(bf)
		e.Imm(l)
		e.Reg(ra)
		e.Reg(rb)
		e.Lift(func(f *il.Function) {
			liftCompare(f, bf, compareOperand(ra, l, signed), compareOperand(rb, l, signed), signed)
		})

	case 8, 520, 40, 552: // subfc, subf
		base := "subf"
		if xo&0x1ff == 8 {
			base = "subfc"
		}
		decodeArithmetic(w, xoMnemonic(base, w), il.Sub, e)

	case 10, 522, 266, 778: // addc, add
		base := "add"
		if xo&0x1ff == 10 {
			base = "addc"
		}
		decodeArithmetic(w, xoMnemonic(base, w), il.Add, e)

	case 28, 444: // and, or
		ra, rs, rb := x.RA(), x.RS(), x.RB()
		op, name := il.And, "and"
		if xo == 444 {
			op, name = il.Or, "or"
			if rs == rb {
				// or ra, rs, rs copies rs
				e.Op(rcMnemonic("mr", x.Rc()))
				e.Reg(ra)
				e.Reg(rs)
				e.Lift(func(f *il.Function) {
					f.Append(setReg(ra, reg(rs)).WithFlags(recordFlags(x.Rc())))
				})
				break
			}
		}
		e.Op(rcMnemonic(name, x.Rc()))
		e.Reg(ra)
		e.Reg(rs)
		e.Reg(rb)
		e.Lift(func(f *il.Function) {
			f.Append(setReg(ra, op(8, reg(rs), reg(rb))).WithFlags(recordFlags(x.Rc())))
		})

	case 246:
		e.Op("dcbtst")
		e.Reg(x.RA())
		e.Reg(x.RB())
		e.Lift(intrinsic(IntrinsicDcbtst, nil))

	case 278:
		e.Op("dcbt")
		e.Reg(x.RA())
		e.Reg(x.RB())
		e.Lift(intrinsic(IntrinsicDcbt, nil))

	case 982:
		e.Op("icbi")
		e.Reg(x.RA())
		e.Reg(x.RB())
		e.Lift(intrinsic(IntrinsicIcbi, nil))

	case 274, 306: // tlbiel, tlbie
		id := IntrinsicTlbie
		if xo == 274 {
			e.Op("tlbiel")
			id = IntrinsicTlbiel
		} else {
			e.Op("tlbie")
		}
		e.Reg(x.RB())
		e.Imm(x.L())
		e.Lift(intrinsic(id, nil, reg(x.RB()), il.Const(1, x.L())))

	case 339:
		decodeMFSPR(w, e)

	case 467:
		decodeMTSPR(w, e)

	case 370:
		e.Op("tlbia")
		e.Lift(intrinsic(IntrinsicTlbia, nil))

	case 402:
		e.Op("slbmte")
		e.Reg(x.RS())
		e.Reg(x.RB())
		e.Lift(intrinsic(IntrinsicSlbmte, nil, reg(x.RS()), reg(x.RB())))

	case 434:
		e.Op("slbie")
		e.Reg(x.RB())
		e.Lift(intrinsic(IntrinsicSlbie, nil, reg(x.RB())))

	case 566:
		e.Op("tlbsync")
		e.Lift(intrinsic(IntrinsicTlbsync, nil))

	case 598:
		e.Op("sync")
		e.Lift(intrinsic(IntrinsicSync, nil))

	case 854:
		e.Op("eieio")
		e.Lift(intrinsic(IntrinsicEieio, nil))

	default:
		if u, ok := group31Unmodelled[xo]; ok {
			u.emit(w, e)
			break
		}
		e.Undefined()
	}
	return true
}

// decodeArithmetic decodes a register to register XO form operation. For
// subtraction the operands are reversed: subf rt, ra, rb computes rb - ra.
// Carry, overflow and record flags are not computed.
func decodeArithmetic(w Word, name string, op func(int, *il.Expr, *il.Expr) *il.Expr, e Emitter) {
	x := XOForm(w)
	rt, ra, rb := x.RT(), x.RA(), x.RB()
	e.Op(name)
	e.Reg(rt)
	e.Reg(ra)
	e.Reg(rb)
	e.Lift(func(f *il.Function) {
		a, b := reg(ra), reg(rb)
		if x.XO() == 8 || x.XO() == 40 {
			a, b = b, a
		}
		f.Append(setReg(rt, op(8, a, b)))
	})
}

func decodeMFSPR(w Word, e Emitter) {
	x := XFXForm(w)
	rt, spr := x.RT(), x.SPR()
	if name, ok := sprMnemonics[spr]; ok {
		e.Op("mf" + name)
		e.Reg(rt)
	} else {
		e.Op("mfspr")
		e.Reg(rt)
		e.Imm(spr)
	}
	if spr == sprCTR {
		e.Lift(func(f *il.Function) {
			f.Append(setReg(rt, reg(RegCTR)))
		})
		return
	}
	e.Lift(intrinsic(IntrinsicMfspr, []Reg{rt}, il.Const(2, spr)))
}

func decodeMTSPR(w Word, e Emitter) {
	x := XFXForm(w)
	rs, spr := x.RS(), x.SPR()
	if name, ok := sprMnemonics[spr]; ok {
		e.Op("mt" + name)
		e.Reg(rs)
	} else {
		e.Op("mtspr")
		e.Imm(spr)
		e.Reg(rs)
	}
	if spr == sprCTR {
		e.Lift(func(f *il.Function) {
			f.Append(setReg(RegCTR, reg(rs)))
		})
		return
	}
	e.Lift(intrinsic(IntrinsicMtspr, nil, il.Const(2, spr), reg(rs)))
}
