// Package disasm decodes ranges of memory: linear sweep disassembly,
// control flow edges and lifting of whole regions into a single IR
// function.
package disasm

import (
	"errors"
	"fmt"

	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
	"github.com/go-delve/ppc64dec/pkg/ppc64/asmtext"
)

// ErrUnaligned is returned when a range does not start on an instruction
// boundary.
var ErrUnaligned = errors.New("address is not word aligned")

// AsmInstruction represents one assembly instruction.
type AsmInstruction struct {
	Addr  uint64
	Bytes []byte
	Size  int

	// Valid is false for reserved words and for trailing bytes too short to
	// hold an instruction.
	Valid bool
	Word  ppc64.Word

	Tokens   []asmtext.Token
	Branches []ppc64.Branch
	Kind     AsmInstructionKind
}

type AsmInstructionKind uint8

const (
	OtherInstruction AsmInstructionKind = iota
	CallInstruction
	RetInstruction
	JmpInstruction
	HardBreakInstruction
)

func (k AsmInstructionKind) String() string {
	switch k {
	case CallInstruction:
		return "call"
	case RetInstruction:
		return "ret"
	case JmpInstruction:
		return "jmp"
	case HardBreakInstruction:
		return "hardbreak"
	}
	return "other"
}

func (instr *AsmInstruction) IsCall() bool {
	return instr.Kind == CallInstruction
}

func (instr *AsmInstruction) IsRet() bool {
	return instr.Kind == RetInstruction
}

func (instr *AsmInstruction) IsJmp() bool {
	return instr.Kind == JmpInstruction
}

func (instr *AsmInstruction) IsHardBreak() bool {
	return instr.Kind == HardBreakInstruction
}

// Text returns the instruction in human readable form, "?" when it is
// not valid.
func (instr *AsmInstruction) Text() string {
	if !instr.Valid {
		return "?"
	}
	return asmtext.String(instr.Tokens)
}

// DestTarget returns the destination of a direct branch or call.
func (instr *AsmInstruction) DestTarget() (uint64, bool) {
	for _, b := range instr.Branches {
		switch b.Kind {
		case ppc64.UnconditionalBranch, ppc64.TrueBranch, ppc64.CallDestination:
			return b.Target, true
		}
	}
	return 0, false
}

// Disassemble disassembles memory between startAddr and endAddr. Decoded
// text is looked up in cache, which may be nil.
// Be aware that the Bytes field of each returned instruction is a slice of
// a larger array of size endAddr - startAddr.
func Disassemble(memrw MemoryReader, cache *Cache, startAddr, endAddr uint64) ([]AsmInstruction, error) {
	if endAddr < startAddr {
		return nil, fmt.Errorf("end address %#x before start address %#x", endAddr, startAddr)
	}
	if startAddr%ppc64.InstructionLength != 0 {
		return nil, fmt.Errorf("%w: %#x", ErrUnaligned, startAddr)
	}
	if err := checkRange(memrw, startAddr, endAddr); err != nil {
		return nil, err
	}
	mem := make([]byte, int(endAddr-startAddr))
	_, err := memrw.ReadMemory(mem, startAddr)
	if err != nil {
		return nil, err
	}

	r := make([]AsmInstruction, 0, len(mem)/ppc64.InstructionLength)
	pc := startAddr

	for len(mem) > 0 {
		inst := decodeAt(cache, mem, pc)
		r = append(r, inst)

		pc += uint64(inst.Size)
		mem = mem[inst.Size:]
	}
	return r, nil
}

// DecodeWord decodes the single instruction word w located at addr.
func DecodeWord(cache *Cache, w ppc64.Word, addr uint64) AsmInstruction {
	return decodeAt(cache, w.Bytes(), addr)
}

func decodeAt(cache *Cache, mem []byte, pc uint64) AsmInstruction {
	var inst AsmInstruction
	inst.Addr = pc

	w, err := ppc64.ReadWord(mem)
	if err != nil {
		inst.Size = len(mem)
		inst.Bytes = mem
		if logflags.Decoder() {
			logflags.DecoderLogger().Debugf("%#x: %v", pc, err)
		}
		return inst
	}
	inst.Size = ppc64.InstructionLength
	inst.Bytes = mem[:inst.Size]
	inst.Word = w

	inst.Tokens, inst.Valid = cache.Tokens(w)
	if !inst.Valid {
		if logflags.Decoder() {
			logflags.DecoderLogger().Debugf("%#x: invalid instruction %#08x", pc, uint32(w))
		}
		return inst
	}
	inst.Branches = ppc64.Info(w, pc).Branches
	inst.Kind = classify(w, inst.Branches)
	return inst
}

// classify derives the kind of a valid instruction from its control flow
// edges. Branches through the link or count register that set the link
// register have no edge and are calls.
func classify(w ppc64.Word, branches []ppc64.Branch) AsmInstructionKind {
	for _, b := range branches {
		switch b.Kind {
		case ppc64.CallDestination:
			return CallInstruction
		case ppc64.FunctionReturn:
			return RetInstruction
		case ppc64.UnconditionalBranch, ppc64.TrueBranch, ppc64.IndirectBranch:
			return JmpInstruction
		}
	}
	switch w.Primary() {
	case 2, 3: // tdi, twi
		return HardBreakInstruction
	case 19:
		if xo := ppc64.XLForm(w).XO(); w.LK() && (xo == 16 || xo == 528) {
			return CallInstruction
		}
	case 31:
		if xo := ppc64.XForm(w).XO(); xo == 4 || xo == 68 { // tw, td
			return HardBreakInstruction
		}
	}
	return OtherInstruction
}

// Edge is a control flow edge leaving the instruction at From.
type Edge struct {
	From uint64
	ppc64.Branch
}

// Edges returns the control flow edges of the instructions between
// startAddr and endAddr.
func Edges(memrw MemoryReader, startAddr, endAddr uint64) ([]Edge, error) {
	text, err := Disassemble(memrw, nil, startAddr, endAddr)
	if err != nil {
		return nil, err
	}
	var r []Edge
	for i := range text {
		for _, b := range text[i].Branches {
			r = append(r, Edge{From: text[i].Addr, Branch: b})
		}
	}
	return r, nil
}
