// Package asmtext renders decoded instructions as a sequence of typed
// display tokens.
package asmtext

import (
	"fmt"
	"strings"

	"github.com/go-delve/ppc64dec/pkg/archinfo"
	"github.com/go-delve/ppc64dec/pkg/il"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

// TokenKind classifies a display token.
type TokenKind uint8

const (
	InstructionToken TokenKind = iota
	TextToken
	RegisterToken
	IntegerToken
	BeginMemoryOperandToken
	EndMemoryOperandToken
)

func (k TokenKind) String() string {
	switch k {
	case InstructionToken:
		return "instruction"
	case TextToken:
		return "text"
	case RegisterToken:
		return "register"
	case IntegerToken:
		return "integer"
	case BeginMemoryOperandToken:
		return "begin-memory"
	case EndMemoryOperandToken:
		return "end-memory"
	}
	return "unknown"
}

// Token is a piece of instruction text.
type Token struct {
	Kind  TokenKind
	Text  string
	Value uint64 // value of IntegerToken and RegisterToken
}

// UndefinedMnemonic is displayed for valid words whose meaning is not
// modelled.
const UndefinedMnemonic = "undefined"

// Builder is a ppc64.Emitter that appends tokens to Tokens.
type Builder struct {
	Tokens []Token

	// operands counts the operands emitted for the current instruction, it
	// decides which separator precedes the next one.
	operands int
}

var _ ppc64.Emitter = (*Builder)(nil)

func (b *Builder) add(kind TokenKind, text string, value uint64) {
	b.Tokens = append(b.Tokens, Token{Kind: kind, Text: text, Value: value})
}

func (b *Builder) separator() {
	if b.operands == 0 {
		b.add(TextToken, " ", 0)
	} else {
		b.add(TextToken, ", ", 0)
	}
	b.operands++
}

func (b *Builder) Op(mnemonic string) {
	b.add(InstructionToken, mnemonic, 0)
}

func (b *Builder) Reg(r ppc64.Reg) {
	b.separator()
	b.add(RegisterToken, archinfo.RegisterName(r), uint64(r))
}

func (b *Builder) Imm(v uint64) {
	b.separator()
	b.add(IntegerToken, fmt.Sprintf("0x%x", v), v)
}

// Disp emits d(base). A zero base register reads as the literal 0.
func (b *Builder) Disp(base ppc64.Reg, d uint64) {
	b.separator()
	b.add(IntegerToken, fmt.Sprintf("0x%x", d), d)
	b.add(BeginMemoryOperandToken, "(", 0)
	if base == 0 {
		b.add(IntegerToken, "0", 0)
	} else {
		b.add(RegisterToken, archinfo.RegisterName(base), uint64(base))
	}
	b.add(EndMemoryOperandToken, ")", 0)
}

func (b *Builder) Undefined() {
	b.add(InstructionToken, UndefinedMnemonic, 0)
}

// Lift does nothing, text has no use for IR.
func (b *Builder) Lift(func(*il.Function)) {}

// Append decodes w, located at addr, and appends its tokens to dst. When w
// is invalid dst is returned unchanged together with false.
func Append(dst []Token, w ppc64.Word, addr uint64) ([]Token, bool) {
	n := len(dst)
	b := Builder{Tokens: dst}
	if !ppc64.Decode(w, addr, &b) {
		return b.Tokens[:n], false
	}
	return b.Tokens, true
}

// Decode returns the tokens of w, located at addr.
func Decode(w ppc64.Word, addr uint64) ([]Token, bool) {
	return Append(nil, w, addr)
}

// String concatenates the text of tokens.
func String(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Text returns the instruction text of w, or "?" if w is invalid.
func Text(w ppc64.Word, addr uint64) string {
	tokens, ok := Decode(w, addr)
	if !ok {
		return "?"
	}
	return String(tokens)
}
