package ppc64

import (
	"fmt"
	"strings"
)

// Field accessors, one type per instruction form. Every accessor masks its
// result to the width of the field. Immediate fields are returned as raw bit
// patterns, callers sign extend them with SignExtend where needed.

func reg5(w Word, shift uint) Reg {
	return Reg((w >> shift) & 0x1f)
}

// DForm is an instruction word in D form.
type DForm Word

func (d DForm) RT() Reg    { return reg5(Word(d), 21) }
func (d DForm) RS() Reg    { return reg5(Word(d), 21) }
func (d DForm) RA() Reg    { return reg5(Word(d), 16) }
func (d DForm) UI() uint64 { return uint64(d & 0xffff) }
func (d DForm) D() uint64  { return uint64(d & 0xffff) }
func (d DForm) BF() uint64 { return uint64((d >> 23) & 0x7) }
func (d DForm) L() uint64  { return uint64((d >> 21) & 0x1) }
func (d DForm) TO() uint64 { return uint64((d >> 21) & 0x1f) }

// DSForm is an instruction word in DS form. The displacement is a multiple
// of four, the low two bits of the word hold the extended opcode.
type DSForm Word

func (d DSForm) RT() Reg    { return reg5(Word(d), 21) }
func (d DSForm) RS() Reg    { return reg5(Word(d), 21) }
func (d DSForm) RA() Reg    { return reg5(Word(d), 16) }
func (d DSForm) DS() uint64 { return uint64(d & 0xfffc) }
func (d DSForm) XO() uint32 { return uint32(d & 0x3) }

// IForm is an instruction word in I form.
type IForm Word

func (i IForm) LI() uint64 { return uint64(i & 0x3fffffc) }
func (i IForm) AA() uint64 { return uint64((i >> 1) & 1) }
func (i IForm) LK() uint64 { return uint64(i & 1) }

// BForm is an instruction word in B form.
type BForm Word

func (b BForm) BO() uint64 { return uint64((b >> 21) & 0x1f) }
func (b BForm) BI() uint64 { return uint64((b >> 16) & 0x1f) }
func (b BForm) BD() uint64 { return uint64(b & 0xfffc) }
func (b BForm) AA() uint64 { return uint64((b >> 1) & 1) }
func (b BForm) LK() uint64 { return uint64(b & 1) }

// XLForm is an instruction word in XL form, used by the branch to link and
// count register instructions.
type XLForm Word

func (x XLForm) BO() uint64 { return uint64((x >> 21) & 0x1f) }
func (x XLForm) BI() uint64 { return uint64((x >> 16) & 0x1f) }
func (x XLForm) BH() uint64 { return uint64((x >> 11) & 0x3) }
func (x XLForm) XO() uint32 { return uint32((x >> 1) & 0x3ff) }
func (x XLForm) LK() uint64 { return uint64(x & 1) }

// MForm is an instruction word in M form.
type MForm Word

func (m MForm) RS() Reg    { return reg5(Word(m), 21) }
func (m MForm) RA() Reg    { return reg5(Word(m), 16) }
func (m MForm) RB() Reg    { return reg5(Word(m), 11) }
func (m MForm) SH() uint64 { return uint64((m >> 11) & 0x1f) }
func (m MForm) MB() uint64 { return uint64((m >> 6) & 0x1f) }
func (m MForm) ME() uint64 { return uint64((m >> 1) & 0x1f) }
func (m MForm) Rc() uint64 { return uint64(m & 1) }

// splitSix decodes the six bit mb/me field of the MD and MDS forms, whose
// most significant bit is stored last.
func splitSix(w Word) uint64 {
	return uint64((w>>6)&0x1f) | uint64(w&0x20)
}

// MDForm is an instruction word in MD form.
type MDForm Word

func (m MDForm) RS() Reg    { return reg5(Word(m), 21) }
func (m MDForm) RA() Reg    { return reg5(Word(m), 16) }
func (m MDForm) SH() uint64 { return uint64((m>>11)&0x1f) | uint64((m&0x2)<<4) }
func (m MDForm) MB() uint64 { return splitSix(Word(m)) }
func (m MDForm) ME() uint64 { return splitSix(Word(m)) }
func (m MDForm) XO() uint32 { return uint32((m >> 2) & 0x7) }
func (m MDForm) Rc() uint64 { return uint64(m & 1) }

// MDSForm is an instruction word in MDS form.
type MDSForm Word

func (m MDSForm) RS() Reg    { return reg5(Word(m), 21) }
func (m MDSForm) RA() Reg    { return reg5(Word(m), 16) }
func (m MDSForm) RB() Reg    { return reg5(Word(m), 11) }
func (m MDSForm) MB() uint64 { return splitSix(Word(m)) }
func (m MDSForm) ME() uint64 { return splitSix(Word(m)) }
func (m MDSForm) XO() uint32 { return uint32((m >> 1) & 0xf) }
func (m MDSForm) Rc() uint64 { return uint64(m & 1) }

// XForm is an instruction word in X form.
type XForm Word

func (x XForm) RT() Reg    { return reg5(Word(x), 21) }
func (x XForm) RS() Reg    { return reg5(Word(x), 21) }
func (x XForm) RA() Reg    { return reg5(Word(x), 16) }
func (x XForm) RB() Reg    { return reg5(Word(x), 11) }
func (x XForm) BF() uint64 { return uint64((x >> 23) & 0x7) }
func (x XForm) L() uint64  { return uint64((x >> 21) & 0x1) }
func (x XForm) TO() uint64 { return uint64((x >> 21) & 0x1f) }
func (x XForm) XO() uint32 { return uint32((x >> 1) & 0x3ff) }
func (x XForm) Rc() uint64 { return uint64(x & 1) }

// XFXForm is an instruction word in XFX form. The SPR field is stored with
// its two five bit halves swapped.
type XFXForm Word

func (x XFXForm) RT() Reg     { return reg5(Word(x), 21) }
func (x XFXForm) RS() Reg     { return reg5(Word(x), 21) }
func (x XFXForm) SPR() uint64 { return uint64((x&0x1f0000)>>16) | uint64((x&0xf800)>>6) }
func (x XFXForm) XO() uint32  { return uint32((x >> 1) & 0x3ff) }

// XOForm is an instruction word in XO form.
type XOForm Word

func (x XOForm) RT() Reg    { return reg5(Word(x), 21) }
func (x XOForm) RA() Reg    { return reg5(Word(x), 16) }
func (x XOForm) RB() Reg    { return reg5(Word(x), 11) }
func (x XOForm) OE() uint64 { return uint64((x >> 10) & 1) }
func (x XOForm) XO() uint32 { return uint32((x >> 1) & 0x1ff) }
func (x XOForm) Rc() uint64 { return uint64(x & 1) }

// Form names an instruction layout.
type Form uint8

const (
	FormD Form = iota
	FormDS
	FormI
	FormB
	FormXL
	FormM
	FormMD
	FormMDS
	FormX
	FormXFX
	FormXO
)

var formNames = []string{"D", "DS", "I", "B", "XL", "M", "MD", "MDS", "X", "XFX", "XO"}

func (f Form) String() string {
	if int(f) < len(formNames) {
		return formNames[f]
	}
	return fmt.Sprintf("Form(%d)", int(f))
}

// ParseForm returns the form called name, ignoring case.
func ParseForm(name string) (Form, error) {
	for i, n := range formNames {
		if strings.EqualFold(n, name) {
			return Form(i), nil
		}
	}
	return 0, fmt.Errorf("unknown instruction form %q", name)
}

// Field is a named field extracted from an instruction word.
type Field struct {
	Name  string
	Value uint64
}

type fieldFn struct {
	name string
	fn   func(Word) uint64
}

var formFields = map[Form][]fieldFn{
	FormD: {
		{"RT", func(w Word) uint64 { return uint64(DForm(w).RT()) }},
		{"RA", func(w Word) uint64 { return uint64(DForm(w).RA()) }},
		{"D", func(w Word) uint64 { return DForm(w).D() }},
		{"BF", func(w Word) uint64 { return DForm(w).BF() }},
		{"L", func(w Word) uint64 { return DForm(w).L() }},
	},
	FormDS: {
		{"RT", func(w Word) uint64 { return uint64(DSForm(w).RT()) }},
		{"RA", func(w Word) uint64 { return uint64(DSForm(w).RA()) }},
		{"DS", func(w Word) uint64 { return DSForm(w).DS() }},
		{"XO", func(w Word) uint64 { return uint64(DSForm(w).XO()) }},
	},
	FormI: {
		{"LI", func(w Word) uint64 { return IForm(w).LI() }},
		{"AA", func(w Word) uint64 { return IForm(w).AA() }},
		{"LK", func(w Word) uint64 { return IForm(w).LK() }},
	},
	FormB: {
		{"BO", func(w Word) uint64 { return BForm(w).BO() }},
		{"BI", func(w Word) uint64 { return BForm(w).BI() }},
		{"BD", func(w Word) uint64 { return BForm(w).BD() }},
		{"AA", func(w Word) uint64 { return BForm(w).AA() }},
		{"LK", func(w Word) uint64 { return BForm(w).LK() }},
	},
	FormXL: {
		{"BO", func(w Word) uint64 { return XLForm(w).BO() }},
		{"BI", func(w Word) uint64 { return XLForm(w).BI() }},
		{"BH", func(w Word) uint64 { return XLForm(w).BH() }},
		{"XO", func(w Word) uint64 { return uint64(XLForm(w).XO()) }},
		{"LK", func(w Word) uint64 { return XLForm(w).LK() }},
	},
	FormM: {
		{"RS", func(w Word) uint64 { return uint64(MForm(w).RS()) }},
		{"RA", func(w Word) uint64 { return uint64(MForm(w).RA()) }},
		{"RB", func(w Word) uint64 { return uint64(MForm(w).RB()) }},
		{"MB", func(w Word) uint64 { return MForm(w).MB() }},
		{"ME", func(w Word) uint64 { return MForm(w).ME() }},
		{"Rc", func(w Word) uint64 { return MForm(w).Rc() }},
	},
	FormMD: {
		{"RS", func(w Word) uint64 { return uint64(MDForm(w).RS()) }},
		{"RA", func(w Word) uint64 { return uint64(MDForm(w).RA()) }},
		{"SH", func(w Word) uint64 { return MDForm(w).SH() }},
		{"MB", func(w Word) uint64 { return MDForm(w).MB() }},
		{"XO", func(w Word) uint64 { return uint64(MDForm(w).XO()) }},
		{"Rc", func(w Word) uint64 { return MDForm(w).Rc() }},
	},
	FormMDS: {
		{"RS", func(w Word) uint64 { return uint64(MDSForm(w).RS()) }},
		{"RA", func(w Word) uint64 { return uint64(MDSForm(w).RA()) }},
		{"RB", func(w Word) uint64 { return uint64(MDSForm(w).RB()) }},
		{"MB", func(w Word) uint64 { return MDSForm(w).MB() }},
		{"XO", func(w Word) uint64 { return uint64(MDSForm(w).XO()) }},
		{"Rc", func(w Word) uint64 { return MDSForm(w).Rc() }},
	},
	FormX: {
		{"RT", func(w Word) uint64 { return uint64(XForm(w).RT()) }},
		{"RA", func(w Word) uint64 { return uint64(XForm(w).RA()) }},
		{"RB", func(w Word) uint64 { return uint64(XForm(w).RB()) }},
		{"L", func(w Word) uint64 { return XForm(w).L() }},
		{"XO", func(w Word) uint64 { return uint64(XForm(w).XO()) }},
		{"Rc", func(w Word) uint64 { return XForm(w).Rc() }},
	},
	FormXFX: {
		{"RT", func(w Word) uint64 { return uint64(XFXForm(w).RT()) }},
		{"SPR", func(w Word) uint64 { return XFXForm(w).SPR() }},
		{"XO", func(w Word) uint64 { return uint64(XFXForm(w).XO()) }},
	},
	FormXO: {
		{"RT", func(w Word) uint64 { return uint64(XOForm(w).RT()) }},
		{"RA", func(w Word) uint64 { return uint64(XOForm(w).RA()) }},
		{"RB", func(w Word) uint64 { return uint64(XOForm(w).RB()) }},
		{"OE", func(w Word) uint64 { return XOForm(w).OE() }},
		{"XO", func(w Word) uint64 { return uint64(XOForm(w).XO()) }},
		{"Rc", func(w Word) uint64 { return XOForm(w).Rc() }},
	},
}

// Extract returns the primary opcode followed by every field of w when
// interpreted in the given form.
func Extract(w Word, form Form) []Field {
	fns := formFields[form]
	r := make([]Field, 0, len(fns)+1)
	r = append(r, Field{Name: "OPCD", Value: uint64(w.Primary())})
	for _, f := range fns {
		r = append(r, Field{Name: f.name, Value: f.fn(w)})
	}
	return r
}

// FormOf returns the form used by the instruction encoded in w, as far as
// the primary opcode determines it.
func FormOf(w Word) Form {
	switch op := w.Primary(); {
	case op == 16:
		return FormB
	case op == 18:
		return FormI
	case op == 19:
		return FormXL
	case op >= 20 && op <= 23:
		return FormM
	case op == 30:
		if MDSForm(w).XO() >= 8 {
			return FormMDS
		}
		return FormMD
	case op == 31:
		switch XForm(w).XO() {
		case 339, 467:
			return FormXFX
		}
		switch XOForm(w).XO() {
		case 8, 10, 40, 266, 9, 11:
			return FormXO
		}
		return FormX
	case op == 58 || op == 62:
		return FormDS
	}
	return FormD
}
