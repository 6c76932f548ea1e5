package ppc64

// BranchKind classifies a control flow edge.
type BranchKind uint8

const (
	UnconditionalBranch BranchKind = iota
	TrueBranch
	FalseBranch
	CallDestination
	// IndirectBranch is a branch through the count register.
	IndirectBranch
	// FunctionReturn is a branch through the link register.
	FunctionReturn
)

func (k BranchKind) String() string {
	switch k {
	case UnconditionalBranch:
		return "unconditional"
	case TrueBranch:
		return "true"
	case FalseBranch:
		return "false"
	case CallDestination:
		return "call"
	case IndirectBranch:
		return "indirect"
	case FunctionReturn:
		return "return"
	}
	return "unknown"
}

// Branch is a control flow edge leaving an instruction. Target is zero for
// IndirectBranch and FunctionReturn.
type Branch struct {
	Kind   BranchKind
	Target uint64
}

// InstructionInfo is the control flow summary of one instruction.
type InstructionInfo struct {
	Length   int
	Branches []Branch
}

// Info reports the control flow edges of w, located at addr, without
// decoding it fully. Destinations are computed by BranchTarget, the same
// arithmetic used by the IR of the branch.
func Info(w Word, addr uint64) InstructionInfo {
	info := InstructionInfo{Length: InstructionLength}
	next := addr + InstructionLength
	switch w.Primary() {
	case 16:
		dst := BranchTarget(w, addr)
		switch {
		case w.LK():
			info.add(CallDestination, dst)
		case branchAlways(BForm(w).BO()):
			info.add(UnconditionalBranch, dst)
		default:
			info.add(TrueBranch, dst)
			info.add(FalseBranch, next)
		}
	case 18:
		dst := BranchTarget(w, addr)
		if w.LK() {
			info.add(CallDestination, dst)
		} else {
			info.add(UnconditionalBranch, dst)
		}
	case 19:
		x := XLForm(w)
		if w.LK() {
			// calls through lr or ctr return to the next instruction
			break
		}
		var kind BranchKind
		switch x.XO() {
		case 16:
			kind = FunctionReturn
		case 528:
			kind = IndirectBranch
		default:
			return info
		}
		info.add(kind, 0)
		if !branchAlways(x.BO()) {
			info.add(FalseBranch, next)
		}
	}
	return info
}

func (info *InstructionInfo) add(kind BranchKind, target uint64) {
	info.Branches = append(info.Branches, Branch{Kind: kind, Target: target})
}
