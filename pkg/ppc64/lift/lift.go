// Package lift translates instruction words into IR.
package lift

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/go-delve/ppc64dec/pkg/il"
	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

// Lifter is a ppc64.Emitter that appends IR to a function.
type Lifter struct {
	f *il.Function
}

var _ ppc64.Emitter = (*Lifter)(nil)

// New returns a Lifter appending to f.
func New(f *il.Function) *Lifter {
	return &Lifter{f: f}
}

func (l *Lifter) Op(string)              {}
func (l *Lifter) Reg(ppc64.Reg)          {}
func (l *Lifter) Imm(uint64)             {}
func (l *Lifter) Disp(ppc64.Reg, uint64) {}

// Undefined appends the placeholder for an instruction without modelled
// effect.
func (l *Lifter) Undefined() {
	l.f.Append(il.Unimplemented())
}

func (l *Lifter) Lift(fn func(*il.Function)) {
	fn(l.f)
}

// Instruction lifts w, located at addr, appending to f. When w is invalid f
// is left as it was and false is returned. Branch successors are resolved
// with f.LabelForAddress; callers lifting more than one instruction should
// create address labels for them beforehand.
func Instruction(f *il.Function, w ppc64.Word, addr uint64) bool {
	n := f.Len()
	f.SetCurrentAddress(addr)
	if !ppc64.Decode(w, addr, New(f)) {
		f.Truncate(n)
		if logflags.Lifter() {
			logflags.LifterLogger().Debugf("%#x: invalid instruction %#08x", addr, uint32(w))
		}
		return false
	}
	if logflags.Lifter() {
		logflags.LifterLogger().Debugf("%#x: %#08x lifted to %s", addr, uint32(w), spew.Sdump(f.Instrs[n:]))
	}
	return true
}

// Bytes reads the instruction at the start of data and lifts it.
func Bytes(f *il.Function, data []byte, addr uint64) (bool, error) {
	w, err := ppc64.ReadWord(data)
	if err != nil {
		return false, err
	}
	return Instruction(f, w, addr), nil
}
