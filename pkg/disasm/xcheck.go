package disasm

import (
	"encoding/binary"

	"golang.org/x/arch/ppc64/ppc64asm"

	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

// XCheck is the result of decoding one word with both this package and
// golang.org/x/arch/ppc64/ppc64asm.
type XCheck struct {
	Addr uint64
	Word ppc64.Word

	Text string
	Kind AsmInstructionKind

	// Reference is the GNU syntax produced by ppc64asm, empty when it
	// rejects the word.
	Reference     string
	ReferenceKind AsmInstructionKind
}

// ValidityAgrees reports whether both decoders accept or both reject the
// word. Floating point and vector instructions are outside of this
// decoder so ppc64asm legitimately accepts more.
func (x *XCheck) ValidityAgrees() bool {
	return (x.Text != "?") == (x.Reference != "")
}

// KindAgrees reports whether both decoders classify a word they both accept
// the same way.
func (x *XCheck) KindAgrees() bool {
	if x.Text == "?" || x.Reference == "" {
		return true
	}
	return x.Kind == x.ReferenceKind
}

// CrossCheck decodes every instruction between startAddr and endAddr with
// both decoders.
func CrossCheck(memrw MemoryReader, cache *Cache, startAddr, endAddr uint64) ([]XCheck, error) {
	text, err := Disassemble(memrw, cache, startAddr, endAddr)
	if err != nil {
		return nil, err
	}
	r := make([]XCheck, 0, len(text))
	for i := range text {
		inst := &text[i]
		if inst.Size != ppc64.InstructionLength {
			continue
		}
		x := XCheck{Addr: inst.Addr, Word: inst.Word, Text: inst.Text(), Kind: inst.Kind}
		x.Reference, x.ReferenceKind = referenceDecode(inst.Bytes, inst.Addr)
		if logflags.XCheck() && !(x.ValidityAgrees() && x.KindAgrees()) {
			logflags.XCheckLogger().WithField("addr", inst.Addr).Debugf("%#08x: %q (%v) vs %q (%v)", uint32(x.Word), x.Text, x.Kind, x.Reference, x.ReferenceKind)
		}
		r = append(r, x)
	}
	return r, nil
}

func referenceDecode(mem []byte, pc uint64) (string, AsmInstructionKind) {
	inst, err := ppc64asm.Decode(mem, binary.BigEndian)
	if err != nil {
		return "", OtherInstruction
	}
	return ppc64asm.GNUSyntax(inst, pc), referenceKind(inst.Op)
}

func referenceKind(op ppc64asm.Op) AsmInstructionKind {
	switch op {
	case ppc64asm.BL, ppc64asm.BLA, ppc64asm.BCL, ppc64asm.BCLA, ppc64asm.BCLRL, ppc64asm.BCCTRL:
		// Pages 38-40 Book I v3.0
		return CallInstruction
	case ppc64asm.BCLR:
		return RetInstruction
	case ppc64asm.B, ppc64asm.BA, ppc64asm.BC, ppc64asm.BCA, ppc64asm.BCCTR:
		return JmpInstruction
	case ppc64asm.TD, ppc64asm.TDI, ppc64asm.TW, ppc64asm.TWI:
		return HardBreakInstruction
	}
	return OtherInstruction
}
