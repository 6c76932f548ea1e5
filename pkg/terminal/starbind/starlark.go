// Package starbind runs starlark scripts against the code being decoded.
package starbind

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	startime "go.starlark.net/lib/time"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	"github.com/go-delve/ppc64dec/pkg/disasm"
)

const (
	commandBuiltinName = "ppc64dec_command"
	commandPrefix      = "command_"
	contextName        = "ppc64dec_context"
)

func init() {
	resolve.AllowNestedDef = true
	resolve.AllowLambda = true
	resolve.AllowFloat = true
	resolve.AllowSet = true
	resolve.AllowBitwise = true
	resolve.AllowRecursion = true
	resolve.AllowGlobalReassign = true
}

// Context is the context in which starlark scripts are evaluated.
// It gives access to the code being decoded and to terminal commands.
type Context interface {
	Memory() disasm.MemoryReader
	Cache() *disasm.Cache
	// Address returns the current address of the terminal.
	Address() uint64
	MaxLiftInstructions() int
	RegisterCommand(name, helpMsg string, cmdfn func(args string) error)
	CallCommand(cmdstr string) error
}

// EchoWriter is the output of scripts, Echo writes only to transcripts.
type EchoWriter interface {
	io.Writer
	Echo(string)
	Flush()
}

// Env is the environment used to evaluate starlark scripts.
type Env struct {
	env starlark.StringDict
	doc map[string]string
	ctx Context
	out EchoWriter

	mu       sync.Mutex
	thread   *starlark.Thread
	cancelfn context.CancelFunc
}

type builtinFunc func(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// New creates a new starlark binding environment.
func New(ctx Context, out EchoWriter) *Env {
	env := &Env{ctx: ctx, out: out}

	starlark.Universe["time"] = startime.Module

	env.predeclare()

	env.builtin(commandBuiltinName, "(Command)", "runs a terminal command.", env.commandBuiltin)
	env.builtin("read_file", "(Path)", "reads a file.", readFileBuiltin)
	env.builtin("write_file", "(Path, Text)", "writes text to the specified file.", writeFileBuiltin)
	env.builtin("cur_address", "()", "returns the current address of the terminal.", func(*starlark.Thread, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return starlark.MakeUint64(env.ctx.Address()), nil
	})
	env.builtin("help", "(Object)", "prints help for Object, or lists the builtins.", env.helpBuiltin)

	return env
}

// builtin registers fn under name. Every builtin fails once the script
// has been cancelled.
func (env *Env) builtin(name, args, descr string, fn builtinFunc) {
	env.doc[name] = name + args + "\n\n" + name + " " + descr
	env.env[name] = starlark.NewBuiltin(name, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := isCancelled(thread); err != nil {
			return starlark.None, err
		}
		v, err := fn(thread, args, kwargs)
		return v, decorateError(thread, err)
	})
}

func (env *Env) commandBuiltin(_ *starlark.Thread, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	words := make([]string, len(args))
	for i, a := range args {
		s, ok := a.(starlark.String)
		if !ok {
			return starlark.None, fmt.Errorf("argument of %s is not a string", commandBuiltinName)
		}
		words[i] = string(s)
	}
	return starlark.None, env.ctx.CallCommand(strings.Join(words, " "))
}

func readFileBuiltin(_ *starlark.Thread, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackPositionalArgs("read_file", args, nil, 1, &path); err != nil {
		return starlark.None, err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return starlark.None, err
	}
	return starlark.String(buf), nil
}

func writeFileBuiltin(_ *starlark.Thread, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	var path string
	var text starlark.Value
	if err := starlark.UnpackPositionalArgs("write_file", args, nil, 2, &path, &text); err != nil {
		return starlark.None, err
	}
	s, ok := starlark.AsString(text)
	if !ok {
		s = text.String()
	}
	return starlark.None, os.WriteFile(path, []byte(s), 0640)
}

func (env *Env) helpBuiltin(_ *starlark.Thread, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 1 {
		return starlark.None, fmt.Errorf("help takes at most one argument, got %d", len(args))
	}
	if len(args) == 0 {
		var names []string
		for name, v := range env.env {
			if _, ok := v.(*starlark.Builtin); ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		fmt.Fprintln(env.out, "Available builtins:")
		for _, name := range names {
			fmt.Fprintf(env.out, "\t%s\n", name)
		}
		return starlark.None, nil
	}
	switch x := args[0].(type) {
	case *starlark.Builtin:
		if d := env.doc[x.Name()]; d != "" {
			fmt.Fprintln(env.out, d)
		} else {
			fmt.Fprintf(env.out, "no help for builtin %s\n", x.Name())
		}
	case *starlark.Function:
		fmt.Fprintf(env.out, "user defined function %s\n", x.Name())
		if d := x.Doc(); d != "" {
			fmt.Fprintln(env.out, d)
		}
	default:
		fmt.Fprintf(env.out, "no help for object of type %s\n", x.Type())
	}
	return starlark.None, nil
}

// Execute runs the script at path, or source when it is not nil (a
// string, a []byte or an io.Reader), then calls its function mainFnName,
// if it defines one.
func (env *Env) Execute(path string, source interface{}, mainFnName string) (v starlark.Value, err error) {
	defer func() {
		if ierr := recover(); ierr != nil {
			fmt.Fprintf(env.out, "panic executing starlark script: %v\n%s", ierr, debug.Stack())
			v, err = starlark.None, fmt.Errorf("panic executing starlark script: %v", ierr)
		}
	}()

	thread := env.newThread()
	globals, err := starlark.ExecFile(thread, path, source, env.env)
	if err != nil {
		return starlark.None, err
	}
	if err := env.exportGlobals(globals); err != nil {
		return starlark.None, err
	}

	if mainFnName == "" || globals[mainFnName] == nil {
		return starlark.None, nil
	}
	mainfn, ok := globals[mainFnName].(*starlark.Function)
	if !ok {
		return starlark.None, fmt.Errorf("%s is not a function", mainFnName)
	}
	if mainfn.NumParams() != 0 {
		return starlark.None, fmt.Errorf("%s must not take arguments", mainFnName)
	}
	return starlark.Call(thread, mainfn, nil, nil)
}

// exportGlobals makes globals starting with a capital letter visible to
// later scripts and turns functions named command_<name> into terminal
// commands.
func (env *Env) exportGlobals(globals starlark.StringDict) error {
	for name, val := range globals {
		switch {
		case strings.HasPrefix(name, commandPrefix):
			if fn, ok := val.(*starlark.Function); ok {
				env.createCommand(name[len(commandPrefix):], fn)
			}
		case name[0] >= 'A' && name[0] <= 'Z':
			env.env[name] = val
		}
	}
	return nil
}

// createCommand registers fn as a terminal command. A function with a
// single parameter called args receives the command line as it is,
// otherwise the command line is evaluated as the argument list.
func (env *Env) createCommand(name string, fn *starlark.Function) {
	helpMsg := fn.Doc()
	if helpMsg == "" {
		helpMsg = "user defined"
	}

	if fn.NumParams() == 1 {
		if p0, _ := fn.Param(0); p0 == "args" {
			env.ctx.RegisterCommand(name, helpMsg, func(args string) error {
				_, err := starlark.Call(env.newThread(), fn, starlark.Tuple{starlark.String(args)}, nil)
				return err
			})
			return
		}
	}

	env.ctx.RegisterCommand(name, helpMsg, func(args string) error {
		thread := env.newThread()
		argval, err := starlark.Eval(thread, "<input>", "("+args+")", env.env)
		if err != nil {
			return err
		}
		argtuple, ok := argval.(starlark.Tuple)
		if !ok {
			argtuple = starlark.Tuple{argval}
		}
		_, err = starlark.Call(thread, fn, argtuple, nil)
		return err
	})
}

// Cancel cancels the execution of a currently running script or function.
func (env *Env) Cancel() {
	if env == nil {
		return
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	if env.cancelfn != nil {
		env.cancelfn()
		env.cancelfn = nil
	}
	if env.thread != nil {
		env.thread.Cancel("user interrupt")
	}
}

func (env *Env) newThread() *starlark.Thread {
	thread := &starlark.Thread{
		Print: func(_ *starlark.Thread, msg string) { fmt.Fprintln(env.out, msg) },
	}
	ctx, cancel := context.WithCancel(context.Background())
	thread.SetLocal(contextName, ctx)

	env.mu.Lock()
	env.thread, env.cancelfn = thread, cancel
	env.mu.Unlock()
	return thread
}

func isCancelled(thread *starlark.Thread) error {
	if ctx, ok := thread.Local(contextName).(context.Context); ok {
		return ctx.Err()
	}
	return nil
}

// decorateError prefixes err with the position of the script line calling
// the builtin.
func decorateError(thread *starlark.Thread, err error) error {
	if err == nil {
		return nil
	}
	pos := thread.CallFrame(1).Pos
	if pos.Col > 0 {
		return fmt.Errorf("%s:%d:%d: %v", pos.Filename(), pos.Line, pos.Col, err)
	}
	return fmt.Errorf("%s:%d: %v", pos.Filename(), pos.Line, err)
}
