package ppc64

import "github.com/go-delve/ppc64dec/pkg/il"

// Emitter receives the meaning of one instruction from Decode. An Emitter
// accumulates output in storage owned by its creator and is used for a
// single word.
//
// Op, Reg, Imm and Disp describe the display form: a mnemonic followed by
// operands in order. Lift supplies the IR form: fn is called with the
// function statements should be appended to, backends that only render
// text never call it. Undefined is used for words that are valid but whose
// meaning is not modelled beyond their length.
type Emitter interface {
	Op(mnemonic string)
	Reg(r Reg)
	Imm(v uint64)
	Disp(base Reg, d uint64)
	Undefined()
	Lift(fn func(f *il.Function))
}

// unimplemented is the Lift function of instructions that are recognized
// but whose effect is not modelled.
func unimplemented(f *il.Function) {
	f.Append(il.Unimplemented())
}

// reg and friends shorten IR construction over the 64 bit register file.

func reg(r Reg) *il.Expr {
	return il.Register(8, uint32(r))
}

func setReg(r Reg, v *il.Expr) il.Instr {
	return il.SetReg(8, uint32(r), v)
}

func imm(v uint64) *il.Expr {
	return il.Const(8, v)
}

func flag(f Flag) *il.Expr {
	return il.Flag(uint32(f))
}

// effectiveAddress returns base + sext(d), or sext(d) alone when base is
// r0, which reads as zero in address computations.
func effectiveAddress(base Reg, d uint64) *il.Expr {
	disp := imm(SignExtend(16, d))
	if base == 0 {
		return disp
	}
	return il.Add(8, reg(base), disp)
}
