package ppc64

import "github.com/go-delve/ppc64dec/pkg/il"

// BranchTarget returns the destination of the relative or absolute branch
// (primary opcode 16 or 18) encoded in w, located at addr. For any other
// word it returns addr.
func BranchTarget(w Word, addr uint64) uint64 {
	var disp uint64
	switch w.Primary() {
	case 16:
		disp = SignExtend(16, BForm(w).BD())
	case 18:
		disp = SignExtend(26, IForm(w).LI())
	}
	if w.AA() {
		return disp
	}
	return addr + disp
}

// The BO field of conditional branches, bit 0 being the most significant of
// the five:
//
//	0b10000  do not test the condition register bit
//	0b01000  branch when the bit is set (otherwise when clear)
//	0b00100  do not decrement CTR
//	0b00010  branch when CTR reaches zero (otherwise when it does not)
//
// Both "do not" bits together mean the branch is always taken.

func branchAlways(bo uint64) bool {
	return bo&0b10100 == 0b10100
}

func decrementsCTR(bo uint64) bool {
	return bo&0b00100 == 0
}

func testsCR(bo uint64) bool {
	return bo&0b10000 == 0
}

// branchCondition appends the CTR decrement requested by bo, if any, and
// returns the condition under which the branch is taken.
func branchCondition(f *il.Function, bo, bi uint64) *il.Expr {
	var cond *il.Expr
	if decrementsCTR(bo) {
		f.Append(setReg(RegCTR, il.Sub(8, reg(RegCTR), imm(1))))
		if bo&0b00010 != 0 {
			cond = il.CompareEqual(8, reg(RegCTR), imm(0))
		} else {
			cond = il.CompareNotEqual(8, reg(RegCTR), imm(0))
		}
	}
	if testsCR(bo) {
		crbit := il.CompareEqual(1, flag(Flag(bi)), il.Const(1, (bo>>3)&1))
		if cond != nil {
			cond = il.And(1, cond, crbit)
		} else {
			cond = crbit
		}
	}
	return cond
}

// condBranch is a branch under the control of a BO/BI pair.
type condBranch struct {
	bo, bi uint64
	link   bool
	addr   uint64   // address of the branch instruction
	dest   *il.Expr // where the branch goes

	// target is the destination address, meaningful when direct is set.
	target uint64
	direct bool
}

func (b *condBranch) transfer() il.Instr {
	if b.link {
		return il.Call(b.dest)
	}
	return il.Jump(b.dest)
}

func (b *condBranch) lift(f *il.Function) {
	if branchAlways(b.bo) {
		f.Append(b.transfer())
		return
	}

	cond := branchCondition(f, b.bo, b.bi)

	fallthroughLabel, ftok := f.LabelForAddress(b.addr + InstructionLength)

	if b.direct && !b.link {
		taken, ok := f.LabelForAddress(b.target)
		if ok && ftok {
			f.Append(il.If(cond, taken, fallthroughLabel))
		}
		return
	}

	// The return address must only be recorded when the branch is taken:
	// route the taken edge through a local label that performs the call.
	if !ftok {
		return
	}
	taken := f.NewLabel()
	f.Append(il.If(cond, taken, fallthroughLabel))
	f.MarkLabel(taken)
	f.Append(b.transfer())
}

// branchMnemonic appends the absolute and link suffixes of w to base.
func branchMnemonic(base string, w Word) string {
	switch w & 3 {
	case 1:
		return base + "l"
	case 2:
		return base + "a"
	case 3:
		return base + "la"
	}
	return base
}

// decodeB decodes the unconditional branch, primary opcode 18.
func decodeB(w Word, addr uint64, e Emitter) bool {
	e.Op(branchMnemonic("b", w))
	e.Imm(IForm(w).LI())

	target := BranchTarget(w, addr)
	e.Lift(func(f *il.Function) {
		if w.LK() {
			f.Append(il.Call(il.ConstPtr(8, target)))
		} else {
			f.Append(il.Jump(il.ConstPtr(8, target)))
		}
	})
	return true
}

// decodeBC decodes the conditional branch, primary opcode 16.
func decodeBC(w Word, addr uint64, e Emitter) bool {
	b := BForm(w)
	e.Op(branchMnemonic("bc", w))
	e.Imm(b.BO())
	e.Imm(b.BI())
	e.Imm(b.BD())

	target := BranchTarget(w, addr)
	e.Lift(func(f *il.Function) {
		br := condBranch{
			bo:     b.BO(),
			bi:     b.BI(),
			link:   w.LK(),
			addr:   addr,
			dest:   il.ConstPtr(8, target),
			target: target,
			direct: true,
		}
		br.lift(f)
	})
	return true
}

// decodeBCCTR decodes the branch to count register, group 19 extended
// opcode 528.
func decodeBCCTR(w Word, addr uint64, e Emitter) bool {
	x := XLForm(w)
	if w.LK() {
		e.Op("bcctrl")
	} else {
		e.Op("bcctr")
	}
	e.Imm(x.BO())
	e.Imm(x.BI())
	e.Imm(x.BH())

	e.Lift(func(f *il.Function) {
		br := condBranch{
			bo:   x.BO(),
			bi:   x.BI(),
			link: w.LK(),
			addr: addr,
			dest: reg(RegCTR),
		}
		br.lift(f)
	})
	return true
}

// decodeBCLR decodes the branch to link register, group 19 extended opcode
// 16. The link register is outside the modelled register file so only the
// text form is produced.
func decodeBCLR(w Word, e Emitter) bool {
	x := XLForm(w)
	if w.LK() {
		e.Op("bclrl")
	} else {
		e.Op("bclr")
	}
	e.Imm(x.BO())
	e.Imm(x.BI())
	e.Imm(x.BH())
	e.Lift(unimplemented)
	return true
}
