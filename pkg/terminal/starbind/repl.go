package starbind

// Code in this file is derived from go.starlark.net/repl/repl.go
// Which is licensed under the following copyright:
//
// Copyright (c) 2017 The Bazel Authors.  All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are
// met:
//
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the
//    distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
//    contributors may be used to endorse or promote products derived
//    from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
// A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
// HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
// LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

import (
	"fmt"
	"io"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/go-delve/liner"
)

const (
	normalPrompt = ">>> "
	extraPrompt  = "... "

	exitCommand = "exit"
)

// REPL reads starlark statements from the terminal and runs them until
// the user types exit or EOF. Globals defined during the session are
// exported like the globals of a script.
func (env *Env) REPL() error {
	thread := env.newThread()
	globals := make(starlark.StringDict, len(env.env))
	for k, v := range env.env {
		globals[k] = v
	}

	r := &replReader{line: liner.NewLiner(), out: env.out}
	defer r.line.Close()
	r.line.SetCtrlCAborts(true)
	for {
		if err := isCancelled(thread); err != nil {
			return err
		}
		f, err := r.readChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			printError(env.out, err)
			continue
		}
		v, err := evalChunk(thread, f, globals)
		if err != nil {
			printError(env.out, err)
		} else if v != starlark.None {
			fmt.Fprintln(env.out, v)
		}
		env.out.Flush()
	}
	fmt.Fprintln(env.out)
	return env.exportGlobals(globals)
}

// replReader reads one compound statement at a time, switching to the
// continuation prompt after the first line.
type replReader struct {
	line   *liner.State
	out    EchoWriter
	prompt string
	eof    bool
}

func (r *replReader) readLine() ([]byte, error) {
	s, err := r.line.Prompt(r.prompt)
	r.out.Echo(r.prompt + s + "\n")
	r.prompt = extraPrompt
	if err != nil {
		// Ctrl-C abandons the statement, anything else ends the session.
		r.eof = err != liner.ErrPromptAborted
		return nil, err
	}
	if s == exitCommand {
		r.eof = true
		return nil, io.EOF
	}
	r.line.AppendHistory(s)
	return []byte(s + "\n"), nil
}

// readChunk returns io.EOF once the session is over. Syntax errors are
// returned as they are and the session continues.
func (r *replReader) readChunk() (*syntax.File, error) {
	r.prompt = normalPrompt
	f, err := syntax.ParseCompoundStmt("<stdin>", r.readLine)
	if r.eof {
		return nil, io.EOF
	}
	return f, err
}

// evalChunk evaluates a single expression and returns its value, or runs
// statements and merges the globals they define into globals, even when
// execution fails halfway.
func evalChunk(thread *starlark.Thread, f *syntax.File, globals starlark.StringDict) (starlark.Value, error) {
	if len(f.Stmts) == 1 {
		if stmt, ok := f.Stmts[0].(*syntax.ExprStmt); ok {
			return starlark.EvalExpr(thread, stmt.X, globals)
		}
	}
	prog, err := starlark.FileProgram(f, globals.Has)
	if err != nil {
		return nil, err
	}
	res, err := prog.Init(thread, globals)
	for k, v := range res {
		globals[k] = v
	}
	return starlark.None, err
}

// printError prints err to out, with a backtrace for evaluation errors.
func printError(out io.Writer, err error) {
	if evalErr, ok := err.(*starlark.EvalError); ok {
		fmt.Fprintln(out, evalErr.Backtrace())
		return
	}
	fmt.Fprintln(out, err)
}
