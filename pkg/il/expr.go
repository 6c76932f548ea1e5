// Package il is a small low level intermediate representation for lifted
// machine code. A Function is a flat list of statements (Instr) whose operands
// are expression trees (Expr). Control flow inside a Function goes through
// labels, control flow leaving it goes through Jump and Call.
//
// The package knows nothing about a particular architecture: registers,
// flags and intrinsics are plain integers whose names are supplied by a
// Namer when printing.
package il

// Op is the operation performed by an Expr or an Instr.
type Op uint8

const (
	OpConst Op = iota
	OpConstPtr
	OpReg
	OpFlag
	OpLoad
	OpZeroExtend
	OpSignExtend
	OpAdd
	OpSub
	OpAnd
	OpOr
	OpXor
	OpRotateLeft
	OpLogicalShiftRight
	OpCmpEqual
	OpCmpNotEqual
	OpCmpSignedLessThan
	OpCmpSignedGreaterThan
	OpCmpUnsignedLessThan
	OpCmpUnsignedGreaterThan
	OpUndetermined

	OpSetReg
	OpSetFlag
	OpStore
	OpJump
	OpCall
	OpIf
	OpGoto
	OpIntrinsic
	OpSystemCall
	OpNop
	OpUnimplemented
)

var opNames = [...]string{
	OpConst:                  "const",
	OpConstPtr:               "const_ptr",
	OpReg:                    "reg",
	OpFlag:                   "flag",
	OpLoad:                   "load",
	OpZeroExtend:             "zx",
	OpSignExtend:             "sx",
	OpAdd:                    "add",
	OpSub:                    "sub",
	OpAnd:                    "and",
	OpOr:                     "or",
	OpXor:                    "xor",
	OpRotateLeft:             "rol",
	OpLogicalShiftRight:      "lsr",
	OpCmpEqual:               "cmp_e",
	OpCmpNotEqual:            "cmp_ne",
	OpCmpSignedLessThan:      "cmp_slt",
	OpCmpSignedGreaterThan:   "cmp_sgt",
	OpCmpUnsignedLessThan:    "cmp_ult",
	OpCmpUnsignedGreaterThan: "cmp_ugt",
	OpUndetermined:           "undetermined",
	OpSetReg:                 "set_reg",
	OpSetFlag:                "set_flag",
	OpStore:                  "store",
	OpJump:                   "jump",
	OpCall:                   "call",
	OpIf:                     "if",
	OpGoto:                   "goto",
	OpIntrinsic:              "intrinsic",
	OpSystemCall:             "syscall",
	OpNop:                    "nop",
	OpUnimplemented:          "unimplemented",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "invalid"
}

// IsBinary reports whether op takes two operands.
func (op Op) IsBinary() bool {
	return op >= OpAdd && op <= OpCmpUnsignedGreaterThan
}

// Expr is a node of an expression tree.
type Expr struct {
	Op   Op
	Size int // size of the result in bytes

	// Value is the constant for OpConst and OpConstPtr and the register or
	// flag identifier for OpReg and OpFlag.
	Value uint64

	Args []*Expr

	// Flags is a flag write request, interpreted by the architecture.
	Flags uint32
}

// WithFlags returns a copy of e that requests the flag write fw.
func (e *Expr) WithFlags(fw uint32) *Expr {
	c := *e
	c.Flags = fw
	return &c
}

func Const(size int, v uint64) *Expr {
	return &Expr{Op: OpConst, Size: size, Value: v}
}

func ConstPtr(size int, v uint64) *Expr {
	return &Expr{Op: OpConstPtr, Size: size, Value: v}
}

// Register reads size bytes of register reg.
func Register(size int, reg uint32) *Expr {
	return &Expr{Op: OpReg, Size: size, Value: uint64(reg)}
}

// Flag reads a single flag.
func Flag(flag uint32) *Expr {
	return &Expr{Op: OpFlag, Size: 0, Value: uint64(flag)}
}

// Load reads size bytes of memory at addr.
func Load(size int, addr *Expr) *Expr {
	return &Expr{Op: OpLoad, Size: size, Args: []*Expr{addr}}
}

func ZeroExtend(size int, e *Expr) *Expr {
	return &Expr{Op: OpZeroExtend, Size: size, Args: []*Expr{e}}
}

func SignExtend(size int, e *Expr) *Expr {
	return &Expr{Op: OpSignExtend, Size: size, Args: []*Expr{e}}
}

// Undetermined is a value the IR does not compute.
func Undetermined(size int) *Expr {
	return &Expr{Op: OpUndetermined, Size: size}
}

func binary(op Op, size int, a, b *Expr) *Expr {
	return &Expr{Op: op, Size: size, Args: []*Expr{a, b}}
}

func Add(size int, a, b *Expr) *Expr               { return binary(OpAdd, size, a, b) }
func Sub(size int, a, b *Expr) *Expr               { return binary(OpSub, size, a, b) }
func And(size int, a, b *Expr) *Expr               { return binary(OpAnd, size, a, b) }
func Or(size int, a, b *Expr) *Expr                { return binary(OpOr, size, a, b) }
func Xor(size int, a, b *Expr) *Expr               { return binary(OpXor, size, a, b) }
func RotateLeft(size int, a, b *Expr) *Expr        { return binary(OpRotateLeft, size, a, b) }
func LogicalShiftRight(size int, a, b *Expr) *Expr { return binary(OpLogicalShiftRight, size, a, b) }

func CompareEqual(size int, a, b *Expr) *Expr    { return binary(OpCmpEqual, size, a, b) }
func CompareNotEqual(size int, a, b *Expr) *Expr { return binary(OpCmpNotEqual, size, a, b) }

func CompareSignedLessThan(size int, a, b *Expr) *Expr {
	return binary(OpCmpSignedLessThan, size, a, b)
}

func CompareSignedGreaterThan(size int, a, b *Expr) *Expr {
	return binary(OpCmpSignedGreaterThan, size, a, b)
}

func CompareUnsignedLessThan(size int, a, b *Expr) *Expr {
	return binary(OpCmpUnsignedLessThan, size, a, b)
}

func CompareUnsignedGreaterThan(size int, a, b *Expr) *Expr {
	return binary(OpCmpUnsignedGreaterThan, size, a, b)
}

// Walk calls fn for e and every expression below it, parents first.
func (e *Expr) Walk(fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	for _, a := range e.Args {
		a.Walk(fn)
	}
}
