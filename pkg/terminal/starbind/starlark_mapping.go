package starbind

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/go-delve/ppc64dec/pkg/archinfo"
	"github.com/go-delve/ppc64dec/pkg/disasm"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
	"github.com/go-delve/ppc64dec/pkg/ppc64/asmtext"
)

// defaultCount is the number of instructions covered by a range whose end
// is not specified.
const defaultCount = 16

// Instruction is a decoded instruction as seen by scripts.
type Instruction struct {
	Addr   uint64
	Word   uint32
	Valid  bool
	Text   string
	Kind   string
	Dest   uint64 // destination of direct branches, zero otherwise
	Tokens []asmtext.Token
}

// LiftOut is the result of the lift builtin.
type LiftOut struct {
	Statements []string
	Lifted     int
	Invalid    []uint64
}

// FieldsOut is the result of the fields builtin.
type FieldsOut struct {
	Form   string
	Fields []ppc64.Field
}

// RangeIn are the arguments of the builtins operating on a range of
// addresses. Start defaults to the current address and End to
// defaultCount instructions after Start.
type RangeIn struct {
	Start uint64
	End   uint64
}

func (in *RangeIn) unpack(env *Env, args starlark.Tuple, kwargs []starlark.Tuple, extra ...argument) error {
	in.Start = env.ctx.Address()
	params := append([]argument{{"Start", &in.Start}, {"End", &in.End}}, extra...)
	if err := unpackArguments(args, kwargs, params...); err != nil {
		return err
	}
	if in.End == 0 {
		in.End = in.Start + defaultCount*ppc64.InstructionLength
	}
	return nil
}

type argument struct {
	name string
	dst  interface{}
}

// unpackArguments stores positional and keyword arguments into the
// destinations of params. None leaves a destination unchanged.
func unpackArguments(args starlark.Tuple, kwargs []starlark.Tuple, params ...argument) error {
	if len(args) > len(params) {
		return fmt.Errorf("too many arguments, expected at most %d", len(params))
	}
	for i := range args {
		if args[i] == starlark.None {
			continue
		}
		if err := fromStarlark(args[i], params[i].dst, params[i].name); err != nil {
			return err
		}
	}
	for _, kv := range kwargs {
		name, _ := kv[0].(starlark.String)
		found := false
		for _, p := range params {
			if p.name == string(name) {
				if err := fromStarlark(kv[1], p.dst, p.name); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown argument %q", kv[0])
		}
	}
	return nil
}

func newInstruction(inst *disasm.AsmInstruction) Instruction {
	r := Instruction{
		Addr:   inst.Addr,
		Word:   uint32(inst.Word),
		Valid:  inst.Valid,
		Text:   inst.Text(),
		Kind:   inst.Kind.String(),
		Tokens: inst.Tokens,
	}
	r.Dest, _ = inst.DestTarget()
	return r
}

// predeclare creates the environment with the builtins that decode, lift
// and inspect the image.
func (env *Env) predeclare() {
	env.env, env.doc = make(starlark.StringDict), make(map[string]string)

	env.builtin("decode", "(Word, Addr)", "decodes the instruction word Word as if it was located at Addr (default 0).", func(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var word uint32
		var addr uint64
		if err := unpackArguments(args, kwargs, argument{"Word", &word}, argument{"Addr", &addr}); err != nil {
			return starlark.None, err
		}
		inst := disasm.DecodeWord(env.ctx.Cache(), ppc64.Word(word), addr)
		return toStarlark(newInstruction(&inst)), nil
	})

	env.builtin("disassemble", "(Start, End)", "returns the instructions between Start and End.\n\nStart defaults to the current address, End to 16 instructions after Start.", func(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var in RangeIn
		if err := in.unpack(env, args, kwargs); err != nil {
			return starlark.None, err
		}
		text, err := disasm.Disassemble(env.ctx.Memory(), env.ctx.Cache(), in.Start, in.End)
		if err != nil {
			return starlark.None, err
		}
		out := make([]Instruction, len(text))
		for i := range text {
			out[i] = newInstruction(&text[i])
		}
		return toStarlark(out), nil
	})

	env.builtin("lift", "(Start, End, Limit)", "translates the instructions between Start and End, at most Limit of them,\ninto a single function and returns its statements as text.", func(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var in RangeIn
		limit := env.ctx.MaxLiftInstructions()
		if err := in.unpack(env, args, kwargs, argument{"Limit", &limit}); err != nil {
			return starlark.None, err
		}
		res, err := disasm.LiftRegion(env.ctx.Memory(), in.Start, in.End, limit)
		if err != nil {
			return starlark.None, err
		}
		out := LiftOut{Lifted: res.Lifted, Invalid: res.Invalid}
		f := res.Function
		for i := range f.Instrs {
			out.Statements = append(out.Statements, f.Instrs[i].Format(f, archinfo.Names{}))
		}
		return toStarlark(out), nil
	})

	env.builtin("edges", "(Start, End)", "returns the control flow edges leaving the instructions between Start and End.\nEvery edge has the fields From, Kind and Target.", func(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var in RangeIn
		if err := in.unpack(env, args, kwargs); err != nil {
			return starlark.None, err
		}
		edges, err := disasm.Edges(env.ctx.Memory(), in.Start, in.End)
		if err != nil {
			return starlark.None, err
		}
		return toStarlark(edges), nil
	})

	env.builtin("fields", "(Word, Form)", "splits Word into the fields of Form, by default the form selected by its primary opcode.", func(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var word uint32
		var formName string
		if err := unpackArguments(args, kwargs, argument{"Word", &word}, argument{"Form", &formName}); err != nil {
			return starlark.None, err
		}
		w := ppc64.Word(word)
		form := ppc64.FormOf(w)
		if formName != "" {
			var err error
			if form, err = ppc64.ParseForm(formName); err != nil {
				return starlark.None, err
			}
		}
		return toStarlark(FieldsOut{Form: form.String(), Fields: ppc64.Extract(w, form)}), nil
	})

	env.builtin("xcheck", "(Start, End)", "decodes the instructions between Start and End with golang.org/x/arch as well\nand returns both results.", func(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var in RangeIn
		if err := in.unpack(env, args, kwargs); err != nil {
			return starlark.None, err
		}
		checks, err := disasm.CrossCheck(env.ctx.Memory(), env.ctx.Cache(), in.Start, in.End)
		if err != nil {
			return starlark.None, err
		}
		return toStarlark(checks), nil
	})
}
