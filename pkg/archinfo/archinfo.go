// Package archinfo describes the ppc64 architecture to code that consumes
// decoded instructions: display names of registers, flags and intrinsics,
// register storage layout, flag roles and the expansion of flag write
// requests into flag assignments.
package archinfo

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-delve/ppc64dec/pkg/il"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

const (
	Name                 = "ppc64"
	AddressSize          = 8
	MaxInstructionLength = ppc64.InstructionLength
)

// ByteOrder is the byte order of instructions and data.
var ByteOrder binary.ByteOrder = binary.BigEndian

// RegisterName returns the display name of r.
func RegisterName(r ppc64.Reg) string {
	if r == ppc64.RegCTR {
		return "ctr"
	}
	return fmt.Sprintf("r%d", r)
}

// RegisterInfo describes where a register lives in the register file.
type RegisterInfo struct {
	Offset int
	Size   int
}

// Register returns the storage of r. Every register is 8 bytes wide.
func Register(r ppc64.Reg) RegisterInfo {
	return RegisterInfo{Offset: 8 * int(r), Size: 8}
}

// AllRegisters returns every register identifier.
func AllRegisters() []ppc64.Reg {
	r := make([]ppc64.Reg, ppc64.NumRegs)
	for i := range r {
		r[i] = ppc64.Reg(i)
	}
	return r
}

// FullWidthRegisters returns the registers that are not part of a larger
// one, which is all of them.
func FullWidthRegisters() []ppc64.Reg {
	return AllRegisters()
}

var crBitNames = [...]string{"lt", "gt", "eq", "so"}

// FlagName returns the display name of f, or "" if f is not a flag.
func FlagName(f ppc64.Flag) string {
	switch {
	case f.IsCR():
		return fmt.Sprintf("cr%d.%s", f/4, crBitNames[f%4])
	case f == ppc64.FlagXERSO:
		return "xer.so"
	case f == ppc64.FlagXEROV:
		return "xer.ov"
	case f == ppc64.FlagXERCA:
		return "xer.ca"
	}
	return ""
}

// AllFlags returns every named flag.
func AllFlags() []ppc64.Flag {
	var r []ppc64.Flag
	for f := ppc64.Flag(0); f < ppc64.FlagCount; f++ {
		if FlagName(f) != "" {
			r = append(r, f)
		}
	}
	return r
}

// FlagRole says how a flag is computed from the result of an operation.
type FlagRole uint8

const (
	SpecialFlagRole FlagRole = iota
	NegativeSignFlagRole
	PositiveSignFlagRole
	ZeroFlagRole
	OverflowFlagRole
	CarryFlagRole
)

func (r FlagRole) String() string {
	return [...]string{"special", "negative", "positive", "zero", "overflow", "carry"}[r]
}

// FlagRoleOf returns the role of f.
func FlagRoleOf(f ppc64.Flag) FlagRole {
	switch {
	case f.IsCR() && f%4 == ppc64.CRLT:
		return NegativeSignFlagRole
	case f.IsCR() && f%4 == ppc64.CRGT:
		return PositiveSignFlagRole
	case f.IsCR() && f%4 == ppc64.CREQ:
		return ZeroFlagRole
	case f == ppc64.FlagXEROV:
		return OverflowFlagRole
	case f == ppc64.FlagXERCA:
		return CarryFlagRole
	}
	return SpecialFlagRole
}

// FlagsWritten returns the flags a flag write request assigns.
func FlagsWritten(fw ppc64.FlagWrite) []ppc64.Flag {
	var r []ppc64.Flag
	if fw&ppc64.FlagWriteCR0 != 0 {
		r = append(r, ppc64.FlagCR0LT, ppc64.FlagCR0GT, ppc64.FlagCR0EQ, ppc64.FlagCR0SO)
	}
	if fw&ppc64.FlagWriteCA != 0 {
		r = append(r, ppc64.FlagXERCA)
	}
	return r
}

// FlagWriteName returns the display name of a flag write request.
func FlagWriteName(fw ppc64.FlagWrite) string {
	var names []string
	if fw&ppc64.FlagWriteCR0 != 0 {
		names = append(names, "cr0")
	}
	if fw&ppc64.FlagWriteCA != 0 {
		names = append(names, "ca")
	}
	return strings.Join(names, ",")
}

// AllFlagWriteTypes returns every valid flag write request.
func AllFlagWriteTypes() []ppc64.FlagWrite {
	r := make([]ppc64.FlagWrite, 0, ppc64.FlagWriteLimit-1)
	for fw := ppc64.FlagWrite(1); fw < ppc64.FlagWriteLimit; fw++ {
		r = append(r, fw)
	}
	return r
}

var intrinsicNames = [...]string{
	ppc64.IntrinsicDcbt:    "dcbt",
	ppc64.IntrinsicDcbtst:  "dcbtst",
	ppc64.IntrinsicIcbi:    "icbi",
	ppc64.IntrinsicIsync:   "isync",
	ppc64.IntrinsicMfspr:   "mfspr",
	ppc64.IntrinsicMtspr:   "mtspr",
	ppc64.IntrinsicSlbie:   "slbie",
	ppc64.IntrinsicSlbmte:  "slbmte",
	ppc64.IntrinsicTlbiel:  "tlbiel",
	ppc64.IntrinsicTlbie:   "tlbie",
	ppc64.IntrinsicTlbia:   "tlbia",
	ppc64.IntrinsicTlbsync: "tlbsync",
	ppc64.IntrinsicSync:    "sync",
	ppc64.IntrinsicEieio:   "eieio",
}

// IntrinsicName returns the display name of i, or "" if i is unknown.
func IntrinsicName(i ppc64.Intrinsic) string {
	if int(i) < len(intrinsicNames) {
		return intrinsicNames[i]
	}
	return ""
}

// AllIntrinsics returns every intrinsic.
func AllIntrinsics() []ppc64.Intrinsic {
	r := make([]ppc64.Intrinsic, ppc64.IntrinsicCount)
	for i := range r {
		r[i] = ppc64.Intrinsic(i)
	}
	return r
}

// Names implements il.Namer for ppc64.
type Names struct{}

var _ il.Namer = Names{}

func (Names) RegisterName(id uint32) string  { return RegisterName(ppc64.Reg(id)) }
func (Names) FlagName(id uint32) string      { return FlagName(ppc64.Flag(id)) }
func (Names) IntrinsicName(id uint32) string { return IntrinsicName(ppc64.Intrinsic(id)) }
func (Names) FlagWriteName(fw uint32) string { return FlagWriteName(ppc64.FlagWrite(fw)) }
