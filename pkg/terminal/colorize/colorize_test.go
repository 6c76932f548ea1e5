package colorize

import (
	"bytes"
	"testing"

	"github.com/go-delve/ppc64dec/pkg/ppc64/asmtext"
)

func TestPrint(t *testing.T) {
	tokens, ok := asmtext.Decode(0x7c0802a6, 0) // mflr r0
	if !ok {
		t.Fatal("could not decode mflr")
	}

	if got := Sprint(tokens, nil); got != "mflr r0" {
		t.Fatalf("expected plain text, got %q", got)
	}

	escapes := map[Style]string{
		MnemonicStyle: "\033[1m",
		RegisterStyle: "\033[36m",
	}
	var buf bytes.Buffer
	if err := Print(&buf, tokens, escapes); err != nil {
		t.Fatal(err)
	}
	const want = "\033[1mmflr\033[0m \033[36mr0\033[0m"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestStyleOf(t *testing.T) {
	for kind, style := range map[asmtext.TokenKind]Style{
		asmtext.InstructionToken:        MnemonicStyle,
		asmtext.TextToken:               NormalStyle,
		asmtext.RegisterToken:           RegisterStyle,
		asmtext.IntegerToken:            ImmediateStyle,
		asmtext.BeginMemoryOperandToken: NormalStyle,
		asmtext.EndMemoryOperandToken:   NormalStyle,
	} {
		if got := StyleOf(kind); got != style {
			t.Errorf("%v: expected style %d, got %d", kind, style, got)
		}
	}
}
