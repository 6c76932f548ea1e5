package il

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

// Namer supplies display names for architecture specific identifiers.
type Namer interface {
	RegisterName(id uint32) string
	FlagName(id uint32) string
	IntrinsicName(id uint32) string
	FlagWriteName(fw uint32) string
}

type defaultNamer struct{}

func (defaultNamer) RegisterName(id uint32) string  { return fmt.Sprintf("reg%d", id) }
func (defaultNamer) FlagName(id uint32) string      { return fmt.Sprintf("flag%d", id) }
func (defaultNamer) IntrinsicName(id uint32) string { return fmt.Sprintf("intrinsic%d", id) }
func (defaultNamer) FlagWriteName(fw uint32) string { return fmt.Sprintf("%d", fw) }

func namerOrDefault(n Namer) Namer {
	if n == nil {
		return defaultNamer{}
	}
	return n
}

var sizeSuffix = map[int]string{1: ".b", 2: ".w", 4: ".d", 8: ".q"}

var binarySymbols = map[Op]string{
	OpAdd:                    "+",
	OpSub:                    "-",
	OpAnd:                    "&",
	OpOr:                     "|",
	OpXor:                    "^",
	OpRotateLeft:             "rol",
	OpLogicalShiftRight:      "u>>",
	OpCmpEqual:               "==",
	OpCmpNotEqual:            "!=",
	OpCmpSignedLessThan:      "s<",
	OpCmpSignedGreaterThan:   "s>",
	OpCmpUnsignedLessThan:    "u<",
	OpCmpUnsignedGreaterThan: "u>",
}

// Format returns e in infix notation.
func (e *Expr) Format(n Namer) string {
	n = namerOrDefault(n)
	var s string
	switch e.Op {
	case OpConst, OpConstPtr:
		s = fmt.Sprintf("%#x", e.Value)
	case OpReg:
		s = n.RegisterName(uint32(e.Value))
		if e.Size != 8 {
			s += sizeSuffix[e.Size]
		}
	case OpFlag:
		s = n.FlagName(uint32(e.Value))
	case OpLoad:
		s = fmt.Sprintf("[%s]%s", e.Args[0].Format(n), sizeSuffix[e.Size])
	case OpZeroExtend:
		s = fmt.Sprintf("zx%s(%s)", sizeSuffix[e.Size], e.Args[0].Format(n))
	case OpSignExtend:
		s = fmt.Sprintf("sx%s(%s)", sizeSuffix[e.Size], e.Args[0].Format(n))
	case OpUndetermined:
		s = "undetermined"
	default:
		if e.Op.IsBinary() {
			s = fmt.Sprintf("%s %s %s", e.Args[0].formatOperand(n), binarySymbols[e.Op], e.Args[1].formatOperand(n))
		} else {
			s = e.Op.String()
		}
	}
	if e.Flags != 0 {
		s += fmt.Sprintf(" {%s}", n.FlagWriteName(e.Flags))
	}
	return s
}

func (e *Expr) formatOperand(n Namer) string {
	if e.Op.IsBinary() {
		return "(" + e.Format(n) + ")"
	}
	return e.Format(n)
}

func (e *Expr) String() string {
	return e.Format(nil)
}

func formatArgs(args []*Expr, n Namer) string {
	s := make([]string, len(args))
	for i := range args {
		s[i] = args[i].Format(n)
	}
	return strings.Join(s, ", ")
}

// Format returns in as a single line. Labels are printed as the index of
// the statement they point to when f knows it.
func (in *Instr) Format(f *Function, n Namer) string {
	n = namerOrDefault(n)
	label := func(l Label) string {
		if f != nil {
			if pos, ok := f.LabelPosition(l); ok {
				return fmt.Sprintf("%d", pos)
			}
		}
		return fmt.Sprintf("label%d", int(l))
	}
	var s string
	switch in.Op {
	case OpSetReg:
		s = fmt.Sprintf("%s = %s", n.RegisterName(in.Dest), in.Args[0].Format(n))
	case OpSetFlag:
		s = fmt.Sprintf("%s = %s", n.FlagName(in.Dest), in.Args[0].Format(n))
	case OpStore:
		s = fmt.Sprintf("[%s]%s = %s", in.Args[0].Format(n), sizeSuffix[in.Size], in.Args[1].Format(n))
	case OpJump, OpCall:
		s = fmt.Sprintf("%s(%s)", in.Op, in.Args[0].Format(n))
	case OpIf:
		s = fmt.Sprintf("if (%s) then %s else %s", in.Args[0].Format(n), label(in.True), label(in.False))
	case OpGoto:
		s = fmt.Sprintf("goto %s", label(in.True))
	case OpIntrinsic:
		s = fmt.Sprintf("%s(%s)", n.IntrinsicName(in.Intrinsic), formatArgs(in.Args, n))
		if len(in.Outputs) > 0 {
			outs := make([]string, len(in.Outputs))
			for i, r := range in.Outputs {
				outs[i] = n.RegisterName(r)
			}
			s = strings.Join(outs, ", ") + " = " + s
		}
	default:
		s = in.Op.String()
	}
	if in.Flags != 0 {
		s += fmt.Sprintf(" {%s}", n.FlagWriteName(in.Flags))
	}
	return s
}

// Format returns a listing of f, one statement per line.
func (f *Function) Format(n Namer) string {
	var buf bytes.Buffer
	for i := range f.Instrs {
		fmt.Fprintf(&buf, "%4d @ %#08x  %s\n", i, f.Instrs[i].Address, f.Instrs[i].Format(f, n))
	}
	return buf.String()
}

func (f *Function) String() string {
	return f.Format(nil)
}

// Tree returns f as a tree with one branch per statement and one node per
// expression operand.
func (f *Function) Tree(n Namer) treeprint.Tree {
	n = namerOrDefault(n)
	tree := treeprint.New()
	for i := range f.Instrs {
		in := &f.Instrs[i]
		b := tree.AddMetaBranch(fmt.Sprintf("%d @ %#x", i, in.Address), in.Format(f, n))
		for _, a := range in.Args {
			addExprTree(b, a, n)
		}
	}
	return tree
}

func addExprTree(t treeprint.Tree, e *Expr, n Namer) {
	if len(e.Args) == 0 {
		t.AddNode(e.Format(n))
		return
	}
	b := t.AddBranch(e.Op.String() + sizeSuffix[e.Size])
	for _, a := range e.Args {
		addExprTree(b, a, n)
	}
}
