package archinfo

import (
	"github.com/go-delve/ppc64dec/pkg/il"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

// FlagWriteExpr returns the value flag takes after op, an operation that
// carries a flag write request. Summary overflow flags are sticky: they take
// the OR of their current value and the overflow computed for op.
func FlagWriteExpr(flag ppc64.Flag, op *il.Expr) *il.Expr {
	if flag.Sticky() {
		return il.Or(0, il.Flag(uint32(flag)), roleExpr(OverflowFlagRole, op))
	}
	return roleExpr(FlagRoleOf(flag), op)
}

func roleExpr(role FlagRole, op *il.Expr) *il.Expr {
	size := op.Size
	zero := il.Const(size, 0)
	switch role {
	case NegativeSignFlagRole:
		return il.CompareSignedLessThan(size, op, zero)
	case PositiveSignFlagRole:
		return il.CompareSignedGreaterThan(size, op, zero)
	case ZeroFlagRole:
		return il.CompareEqual(size, op, zero)
	case OverflowFlagRole:
		// producers carrying a write request are never OE forms, so they
		// cannot set OV
		return il.Const(0, 0)
	case CarryFlagRole:
		// an unsigned sum carries out exactly when it wraps below an addend
		if op.Op == il.OpAdd {
			return il.CompareUnsignedLessThan(size, op, op.Args[0])
		}
	}
	return il.Undetermined(0)
}

// FlagWrites returns the flag assignments implied by the flag write
// requests carried by in, either on the statement itself or on one of its
// operand expressions.
func FlagWrites(in *il.Instr) []il.Instr {
	var r []il.Instr
	emit := func(fw uint32, result *il.Expr) {
		for _, f := range FlagsWritten(ppc64.FlagWrite(fw)) {
			r = append(r, il.SetFlag(uint32(f), FlagWriteExpr(f, result)))
		}
	}
	if in.Flags != 0 && len(in.Args) > 0 {
		emit(in.Flags, withoutFlags(in.Args[0]))
	}
	for _, a := range in.Args {
		a.Walk(func(e *il.Expr) {
			if e.Flags != 0 {
				emit(e.Flags, withoutFlags(e))
			}
		})
	}
	return r
}

func withoutFlags(e *il.Expr) *il.Expr {
	if e.Flags == 0 {
		return e
	}
	return e.WithFlags(0)
}
