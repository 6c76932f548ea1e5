package terminal

import (
	"github.com/go-delve/ppc64dec/pkg/disasm"
	"github.com/go-delve/ppc64dec/pkg/terminal/starbind"
)

type starlarkContext struct {
	term *Term
}

var _ starbind.Context = starlarkContext{}

func (ctx starlarkContext) Memory() disasm.MemoryReader {
	return ctx.term.img
}

func (ctx starlarkContext) Cache() *disasm.Cache {
	return ctx.term.cache
}

func (ctx starlarkContext) Address() uint64 {
	return ctx.term.pc
}

func (ctx starlarkContext) MaxLiftInstructions() int {
	return ctx.term.conf.GetMaxLiftInstructions()
}

func (ctx starlarkContext) RegisterCommand(name, helpMsg string, fn func(args string) error) {
	ctx.term.cmds.Register(name, func(t *Term, args string) error {
		return fn(args)
	}, helpMsg)
}

func (ctx starlarkContext) CallCommand(cmdstr string) error {
	return ctx.term.cmds.Call(cmdstr, ctx.term)
}
