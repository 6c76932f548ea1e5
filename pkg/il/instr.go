package il

// Label is a position inside a Function that branches can target.
type Label int

// Instr is a statement.
type Instr struct {
	Op   Op
	Size int

	// Dest is the register written by OpSetReg or the flag written by
	// OpSetFlag.
	Dest uint32

	// Flags is a flag write request, interpreted by the architecture.
	Flags uint32

	// Args holds the value of OpSetReg and OpSetFlag, the address and value
	// of OpStore, the target of OpJump and OpCall, the condition of OpIf and
	// the inputs of OpIntrinsic.
	Args []*Expr

	// True and False are the successors of OpIf. OpGoto uses True.
	True, False Label

	Intrinsic uint32
	Outputs   []uint32 // registers written by OpIntrinsic

	// Address is the address of the machine instruction the statement was
	// lifted from.
	Address uint64
}

// WithFlags returns a copy of in that requests the flag write fw.
func (in Instr) WithFlags(fw uint32) Instr {
	in.Flags = fw
	return in
}

// SetReg writes v to the low size bytes of reg.
func SetReg(size int, reg uint32, v *Expr) Instr {
	return Instr{Op: OpSetReg, Size: size, Dest: reg, Args: []*Expr{v}}
}

func SetFlag(flag uint32, v *Expr) Instr {
	return Instr{Op: OpSetFlag, Dest: flag, Args: []*Expr{v}}
}

// Store writes the low size bytes of v to memory at addr.
func Store(size int, addr, v *Expr) Instr {
	return Instr{Op: OpStore, Size: size, Args: []*Expr{addr, v}}
}

func Jump(target *Expr) Instr {
	return Instr{Op: OpJump, Args: []*Expr{target}}
}

func Call(target *Expr) Instr {
	return Instr{Op: OpCall, Args: []*Expr{target}}
}

func If(cond *Expr, t, f Label) Instr {
	return Instr{Op: OpIf, Args: []*Expr{cond}, True: t, False: f}
}

func Goto(l Label) Instr {
	return Instr{Op: OpGoto, True: l}
}

// Intrinsic invokes an architecture specific operation that reads inputs
// and writes the registers in outputs.
func Intrinsic(outputs []uint32, id uint32, inputs ...*Expr) Instr {
	return Instr{Op: OpIntrinsic, Intrinsic: id, Outputs: outputs, Args: inputs}
}

func SystemCall() Instr {
	return Instr{Op: OpSystemCall}
}

func Nop() Instr {
	return Instr{Op: OpNop}
}

// Unimplemented marks a valid instruction whose effect is not modelled.
func Unimplemented() Instr {
	return Instr{Op: OpUnimplemented}
}
