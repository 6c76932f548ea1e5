// Package colorize prints instruction tokens highlighted with ANSI escape
// sequences chosen by token kind.
package colorize

import (
	"io"
	"strings"

	"github.com/go-delve/ppc64dec/pkg/ppc64/asmtext"
)

// Style describes the style of a chunk of text.
type Style uint8

const (
	NormalStyle Style = iota
	MnemonicStyle
	RegisterStyle
	ImmediateStyle
	AddressStyle
)

const resetEscape = "\033[0m"

// StyleOf returns the style used for tokens of kind k.
func StyleOf(k asmtext.TokenKind) Style {
	switch k {
	case asmtext.InstructionToken:
		return MnemonicStyle
	case asmtext.RegisterToken:
		return RegisterStyle
	case asmtext.IntegerToken:
		return ImmediateStyle
	}
	return NormalStyle
}

// Print writes the text of tokens to out. Tokens whose style has an entry
// in colorEscapes are wrapped in that escape sequence and a reset.
func Print(out io.Writer, tokens []asmtext.Token, colorEscapes map[Style]string) error {
	for _, tok := range tokens {
		if err := write(out, StyleOf(tok.Kind), tok.Text, colorEscapes); err != nil {
			return err
		}
	}
	return nil
}

// Sprint returns what Print would write.
func Sprint(tokens []asmtext.Token, colorEscapes map[Style]string) string {
	var sb strings.Builder
	Print(&sb, tokens, colorEscapes)
	return sb.String()
}

// Address writes addr, formatted by the caller, in AddressStyle.
func Address(out io.Writer, text string, colorEscapes map[Style]string) error {
	return write(out, AddressStyle, text, colorEscapes)
}

func write(out io.Writer, style Style, text string, colorEscapes map[Style]string) error {
	esc := colorEscapes[style]
	if esc == "" {
		_, err := io.WriteString(out, text)
		return err
	}
	_, err := io.WriteString(out, esc+text+resetEscape)
	return err
}
