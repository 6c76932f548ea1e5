package disasm

import (
	"fmt"

	"github.com/go-delve/ppc64dec/pkg/il"
	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
	"github.com/go-delve/ppc64dec/pkg/ppc64/lift"
)

// LiftResult is the IR of a region of code.
type LiftResult struct {
	Function *il.Function

	// Lifted is the number of instructions lifted, Invalid lists the
	// addresses of words that could not be.
	Lifted  int
	Invalid []uint64
}

// LiftRegion lifts the instructions between startAddr and endAddr into a
// single function, at most limit of them when limit is positive. Every
// instruction address gets a label before lifting starts so that
// conditional branches inside the region resolve.
func LiftRegion(memrw MemoryReader, startAddr, endAddr uint64, limit int) (*LiftResult, error) {
	if endAddr < startAddr {
		return nil, fmt.Errorf("end address %#x before start address %#x", endAddr, startAddr)
	}
	if startAddr%ppc64.InstructionLength != 0 {
		return nil, fmt.Errorf("%w: %#x", ErrUnaligned, startAddr)
	}
	if limit > 0 && (endAddr-startAddr)/ppc64.InstructionLength > uint64(limit) {
		endAddr = startAddr + uint64(limit)*ppc64.InstructionLength
	}
	if err := checkRange(memrw, startAddr, endAddr); err != nil {
		return nil, err
	}
	n := int(endAddr-startAddr) / ppc64.InstructionLength
	mem := make([]byte, n*ppc64.InstructionLength)
	if _, err := memrw.ReadMemory(mem, startAddr); err != nil {
		return nil, err
	}

	f := il.NewFunction()
	// The label of the address following the region lets its last
	// instruction fall through.
	for i := 0; i <= n; i++ {
		f.AddressLabel(startAddr + uint64(i*ppc64.InstructionLength))
	}

	r := &LiftResult{Function: f}
	for i := 0; i < n; i++ {
		addr := startAddr + uint64(i*ppc64.InstructionLength)
		l, _ := f.LabelForAddress(addr)
		f.MarkLabel(l)

		w, _ := ppc64.ReadWord(mem[i*ppc64.InstructionLength:])
		if !lift.Instruction(f, w, addr) {
			r.Invalid = append(r.Invalid, addr)
			continue
		}
		r.Lifted++
	}
	if logflags.Lifter() {
		logflags.LifterLogger().Infof("lifted %d instructions at %#x, %d statements, %d invalid", r.Lifted, startAddr, f.Len(), len(r.Invalid))
	}
	return r, nil
}
