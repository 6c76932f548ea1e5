package ppc64

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// InstructionLength is the size in bytes of every instruction.
const InstructionLength = 4

// ErrShortBuffer is returned by ReadWord when fewer than four bytes are
// available.
var ErrShortBuffer = errors.New("instruction word needs 4 bytes")

// Word is a raw 32 bit instruction word.
type Word uint32

// ReadWord reads the big-endian instruction word at the start of b.
func ReadWord(b []byte) (Word, error) {
	if len(b) < InstructionLength {
		return 0, fmt.Errorf("%w, have %d", ErrShortBuffer, len(b))
	}
	return Word(binary.BigEndian.Uint32(b)), nil
}

// Primary returns the primary opcode, bits 0:5 of the word.
func (w Word) Primary() uint32 {
	return uint32(w >> 26)
}

// AA reports whether the absolute address bit of a branch is set.
func (w Word) AA() bool {
	return w&2 != 0
}

// LK reports whether the link bit of a branch is set.
func (w Word) LK() bool {
	return w&1 != 0
}

// Bytes returns the big-endian encoding of w.
func (w Word) Bytes() []byte {
	b := make([]byte, InstructionLength)
	binary.BigEndian.PutUint32(b, uint32(w))
	return b
}

// Reg is a register identifier. General purpose registers are 0 to 31.
type Reg uint32

// RegCTR is the count register.
const RegCTR Reg = 32

// NumRegs is the size of the register identifier space.
const NumRegs = 33
