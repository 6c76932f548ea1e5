package terminal

import (
	"bufio"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-delve/ppc64dec/pkg/disasm"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
	"github.com/go-delve/ppc64dec/pkg/terminal/colorize"
)

func disasmPrint(dv []disasm.AsmInstruction, out io.Writer, showBytes bool, colorEscapes map[colorize.Style]string) {
	bw := bufio.NewWriter(out)
	defer bw.Flush()
	tw := tabwriter.NewWriter(bw, 1, 8, 1, '\t', 0)
	defer tw.Flush()
	for i := range dv {
		inst := &dv[i]
		text := "?"
		if inst.Valid {
			text = colorize.Sprint(inst.Tokens, colorEscapes)
		}
		dest := ""
		if addr, ok := inst.DestTarget(); ok {
			dest = fmt.Sprintf("\t# %#x", addr)
		}
		if showBytes {
			fmt.Fprintf(tw, "%#x:\t%x\t%s%s\n", inst.Addr, inst.Bytes, text, dest)
		} else {
			fmt.Fprintf(tw, "%#x:\t%s%s\n", inst.Addr, text, dest)
		}
	}
}

func edgesPrint(edges []disasm.Edge, out io.Writer) {
	tw := tabwriter.NewWriter(out, 1, 8, 1, ' ', 0)
	defer tw.Flush()
	for _, e := range edges {
		switch e.Kind {
		case ppc64.IndirectBranch, ppc64.FunctionReturn:
			fmt.Fprintf(tw, "%#x\t%s\t\n", e.From, e.Kind)
		default:
			fmt.Fprintf(tw, "%#x\t%s\t%#x\n", e.From, e.Kind, e.Target)
		}
	}
}

func fieldsPrint(w ppc64.Word, form ppc64.Form, out io.Writer) {
	fmt.Fprintf(out, "%#08x %s-form\n", uint32(w), form)
	tw := tabwriter.NewWriter(out, 1, 8, 1, ' ', 0)
	defer tw.Flush()
	for _, f := range ppc64.Extract(w, form) {
		fmt.Fprintf(tw, "  %s\t%d\t%#x\n", f.Name, f.Value, f.Value)
	}
}

// xcheckPrint prints the checks on which the two decoders disagree, or all
// of them, and returns the number of disagreements.
func xcheckPrint(checks []disasm.XCheck, out io.Writer, all bool) int {
	tw := tabwriter.NewWriter(out, 1, 8, 1, ' ', 0)
	defer tw.Flush()
	n := 0
	for i := range checks {
		x := &checks[i]
		agrees := x.ValidityAgrees() && x.KindAgrees()
		if !agrees {
			n++
		}
		if agrees && !all {
			continue
		}
		mark := ""
		if !agrees {
			mark = "!"
		}
		ref := x.Reference
		if ref == "" {
			ref = "?"
		}
		fmt.Fprintf(tw, "%s\t%#x:\t%08x\t%s\t%s\t%s\t%s\n", mark, x.Addr, uint32(x.Word), x.Text, x.Kind, ref, x.ReferenceKind)
	}
	return n
}
