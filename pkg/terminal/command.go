// Package terminal implements functions for responding to user
// input and dispatching to appropriate decoder commands.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"

	"github.com/go-delve/ppc64dec/pkg/archinfo"
	"github.com/go-delve/ppc64dec/pkg/disasm"
	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

// defaultCount is the number of instructions listed when a command is not
// given a count.
const defaultCount = 16

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	group          commandGroup
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands of the ppc64dec terminal.
type Commands struct {
	cmds []command

	// index maps every alias to the position of its command in cmds, it
	// resolves unambiguous prefixes.
	index *trie.Trie
}

// DecodeCommands returns a Commands struct with default commands defined.
func DecodeCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"disassemble", "disasm", "d"}, group: decodeCmds, cmdFn: disassCommand, helpMsg: `Disassembler.

	disassemble [<address> [<count>]]
	disassemble -a <start> <end>

Lists count instructions (default 16) starting at address, or every
instruction between start and end. Without arguments the listing continues
where the previous one ended.

Addresses are numbers, '.' for the current address or +n / -n relative to it.`},
		{aliases: []string{"lift", "l"}, group: decodeCmds, cmdFn: liftCommand, helpMsg: `Translates instructions into the intermediate representation.

	lift [-tree] [<address> [<count>]]

Lifts count instructions (default 16, at most max-lift-instructions) starting
at address into a single function. With -tree every statement is printed as
an expression tree.`},
		{aliases: []string{"edges"}, group: decodeCmds, cmdFn: edgesCommand, helpMsg: `Lists control flow edges.

	edges [<address> [<count>]]

Prints every branch, call and return found in count instructions starting at
address.`},
		{aliases: []string{"fields"}, group: decodeCmds, cmdFn: fieldsCommand, helpMsg: `Splits an instruction word into its fields.

	fields <word> [<form>]

The form (D, DS, I, B, XL, M, MD, MDS, X, XFX or XO) defaults to the one the
primary opcode of word selects.`},
		{aliases: []string{"xcheck"}, group: decodeCmds, cmdFn: xcheckCommand, helpMsg: `Compares the decoder with golang.org/x/arch.

	xcheck [-all] [<address> [<count>]]

Without arguments the whole image is checked. Only instructions the two
decoders disagree on are printed, unless -all is specified.`},
		{aliases: []string{"goto", "g"}, group: navCmds, cmdFn: gotoCommand, helpMsg: `Changes the current address.

	goto <address>`},
		{aliases: []string{"image"}, group: navCmds, cmdFn: imageCommand, helpMsg: `Prints information about the loaded image.`},
		{aliases: []string{"config"}, cmdFn: configureCmd, helpMsg: `Changes configuration parameters.

	config -list

Show all configuration parameters.

	config -save

Saves the configuration file to disk, overwriting the current configuration file.

	config <parameter> <value>

Changes the value of a configuration parameter.

	config alias <command> <alias>
	config alias <alias>

Defines <alias> as an alias to <command> or removes an alias.`},
		{aliases: []string{"source"}, cmdFn: c.sourceCommand, helpMsg: `Executes a file containing a list of commands.

	source <path>

If path ends with the .star extension it will be interpreted as a starlark script.
If path is a single '-' character an interactive starlark interpreter will start instead. Type 'exit' to exit.`},
		{aliases: []string{"transcript"}, cmdFn: transcript, helpMsg: `Appends command output to a file.

	transcript [-t] [-x] <output file>
	transcript -off

Output of commands is appended to the specified output file. If -t is
specified and the output file exists it is truncated. If -x is specified
output to stdout is suppressed instead.

Using the -off option disables the transcript.`},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: `Exit the decoder.`},
	}

	sort.Sort(byFirstAlias(c.cmds))
	c.reindex()
	return c
}

// byFirstAlias will sort by the first
// alias of a command.
type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

func (c *Commands) reindex() {
	c.index = trie.New()
	for i := range c.cmds {
		for _, alias := range c.cmds[i].aliases {
			c.index.Add(alias, i)
		}
	}
}

// Register custom commands. Expects cf to be a func of type cmdfunc,
// returning only an error.
func (c *Commands) Register(cmdstr string, cf cmdfunc, helpMsg string) {
	for i := range c.cmds {
		if c.cmds[i].match(cmdstr) {
			c.cmds[i].cmdFn = cf
			c.cmds[i].helpMsg = helpMsg
			return
		}
	}

	c.cmds = append(c.cmds, command{aliases: []string{cmdstr}, cmdFn: cf, helpMsg: helpMsg})
	c.reindex()
}

// lookup returns the command with alias cmdstr or, failing that, the only
// command with an alias starting with cmdstr.
func (c *Commands) lookup(cmdstr string) (*command, error) {
	if c.index == nil {
		return nil, errNoCmd
	}
	if node, ok := c.index.Find(cmdstr); ok {
		return &c.cmds[node.Meta().(int)], nil
	}
	found := -1
	matches := c.index.PrefixSearch(cmdstr)
	for _, m := range matches {
		node, ok := c.index.Find(m)
		if !ok {
			continue
		}
		i := node.Meta().(int)
		if found >= 0 && found != i {
			sort.Strings(matches)
			return nil, fmt.Errorf("command %q is ambiguous: %s", cmdstr, strings.Join(matches, ", "))
		}
		found = i
	}
	if found < 0 {
		return nil, errNoCmd
	}
	return &c.cmds[found], nil
}

// Find will look up the command function for the given command input.
// If it cannot find the command the function returned reports why.
// If the command is an empty string it will do nothing.
func (c *Commands) Find(cmdstr string) cmdfunc {
	if cmdstr == "" {
		return nullCommand
	}
	cmd, err := c.lookup(cmdstr)
	if err != nil {
		return func(*Term, string) error { return err }
	}
	return cmd.cmdFn
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	cmdname := vals[0]
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	if logflags.REPL() && cmdname != "" {
		logflags.REPLLogger().WithField("pc", t.pc).Debugf("%s %s", cmdname, args)
	}
	return c.Find(cmdname)(t, args)
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
	c.reindex()
}

// complete returns the aliases that complete the command being typed.
func (c *Commands) complete(line string) []string {
	if strings.ContainsRune(line, ' ') {
		return nil
	}
	r := c.index.PrefixSearch(strings.ToLower(line))
	sort.Strings(r)
	return r
}

var errNoCmd = errors.New("command not available")

func nullCommand(t *Term, args string) error {
	return nil
}

func (c *Commands) help(t *Term, args string) error {
	if args != "" {
		cmd, err := c.lookup(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.stdout, cmd.helpMsg)
		return nil
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")

	for _, cgd := range commandGroupDescriptions {
		fmt.Fprintf(t.stdout, "\n%s:\n", cgd.description)
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 0, '-', 0)
		for _, cmd := range c.cmds {
			if cmd.group != cgd.group {
				continue
			}
			h := cmd.helpMsg
			if idx := strings.Index(h, "\n"); idx >= 0 {
				h = h[:idx]
			}
			if len(cmd.aliases) > 1 {
				fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
			} else {
				fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

func split2PartsBySpace(s string) []string {
	v := strings.SplitN(s, " ", 2)
	for i := range v {
		v[i] = strings.TrimSpace(v[i])
	}
	return v
}

// splitArgs splits args the way a shell would, pipes are rejected.
func splitArgs(args string) ([]string, error) {
	if strings.TrimSpace(args) == "" {
		return nil, nil
	}
	v, err := argv.Argv(args,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal command line '%s'", args)
	}
	return v[0], nil
}

// parseAddr parses an absolute address, '.' or an offset from the current
// address.
func (t *Term) parseAddr(s string) (uint64, error) {
	if s == "." {
		return t.pc, nil
	}
	if s != "" && (s[0] == '+' || s[0] == '-') {
		n, err := strconv.ParseUint(s[1:], 0, 64)
		if err != nil {
			return 0, fmt.Errorf("wrong argument: %q is not an offset", s)
		}
		if s[0] == '-' {
			if n > t.pc {
				return 0, fmt.Errorf("wrong argument: %q is before address zero", s)
			}
			return t.pc - n, nil
		}
		return t.pc + n, nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("wrong argument: %q is not an address", s)
	}
	return n, nil
}

// parseRange interprets the optional address and count arguments of a
// command. The range is clipped to the end of the image.
func (t *Term) parseRange(args []string, count int) (start, end uint64, err error) {
	if len(args) > 2 {
		return 0, 0, errors.New("too many arguments")
	}
	start = t.pc
	if len(args) > 0 {
		start, err = t.parseAddr(args[0])
		if err != nil {
			return 0, 0, err
		}
	}
	if len(args) > 1 {
		count, err = strconv.Atoi(args[1])
		if err != nil || count <= 0 {
			return 0, 0, fmt.Errorf("wrong argument: %q is not a positive count", args[1])
		}
	}
	if start < t.img.Base || start >= t.img.End() {
		return 0, 0, fmt.Errorf("address %#x outside of image [%#x, %#x)", start, t.img.Base, t.img.End())
	}
	end = start + uint64(count)*ppc64.InstructionLength
	if end > t.img.End() || end < start {
		end = t.img.End()
	}
	return start, end, nil
}

var disasmUsageError = errors.New("wrong number of arguments: disassemble [-a <start> <end>] [<address> [<count>]]")

func disassCommand(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}

	var start, end uint64
	if len(v) > 0 && v[0] == "-a" {
		if len(v) != 3 {
			return disasmUsageError
		}
		if start, err = t.parseAddr(v[1]); err != nil {
			return err
		}
		if end, err = t.parseAddr(v[2]); err != nil {
			return err
		}
		if start < t.img.Base || start >= t.img.End() {
			return fmt.Errorf("address %#x outside of image [%#x, %#x)", start, t.img.Base, t.img.End())
		}
		if end < start {
			return fmt.Errorf("end address %#x before start address %#x", end, start)
		}
		if end > t.img.End() {
			end = t.img.End()
		}
	} else {
		start, end, err = t.parseRange(v, defaultCount)
		if err != nil {
			return err
		}
	}

	text, err := disasm.Disassemble(t.img, t.cache, start, end)
	if err != nil {
		return err
	}

	disasmPrint(text, t.stdout, t.conf.ShowBytes, t.colorEscapes)
	t.pc = end
	return nil
}

func liftCommand(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	tree := false
	if len(v) > 0 && v[0] == "-tree" {
		tree = true
		v = v[1:]
	}
	limit := t.conf.GetMaxLiftInstructions()
	count := defaultCount
	if count > limit {
		count = limit
	}
	start, end, err := t.parseRange(v, count)
	if err != nil {
		return err
	}

	r, err := disasm.LiftRegion(t.img, start, end, limit)
	if err != nil {
		return err
	}
	if tree {
		fmt.Fprint(t.stdout, r.Function.Tree(archinfo.Names{}).String())
	} else {
		fmt.Fprint(t.stdout, r.Function.Format(archinfo.Names{}))
	}
	for _, addr := range r.Invalid {
		fmt.Fprintf(t.stdout, "invalid instruction at %#x\n", addr)
	}
	if n := int(end-start) / ppc64.InstructionLength; n > limit {
		fmt.Fprintf(t.stdout, "(stopped after %d instructions, see max-lift-instructions)\n", limit)
	}
	return nil
}

func edgesCommand(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	start, end, err := t.parseRange(v, defaultCount)
	if err != nil {
		return err
	}
	edges, err := disasm.Edges(t.img, start, end)
	if err != nil {
		return err
	}
	edgesPrint(edges, t.stdout)
	return nil
}

func fieldsCommand(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	if len(v) < 1 || len(v) > 2 {
		return errors.New("wrong number of arguments: fields <word> [<form>]")
	}
	n, err := strconv.ParseUint(v[0], 0, 32)
	if err != nil {
		return fmt.Errorf("wrong argument: %q is not an instruction word", v[0])
	}
	w := ppc64.Word(n)
	form := ppc64.FormOf(w)
	if len(v) > 1 {
		form, err = ppc64.ParseForm(v[1])
		if err != nil {
			return err
		}
	}
	fieldsPrint(w, form, t.stdout)
	return nil
}

func xcheckCommand(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	all := false
	if len(v) > 0 && v[0] == "-all" {
		all = true
		v = v[1:]
	}
	start, end := t.img.Base, t.img.End()
	if len(v) > 0 {
		start, end, err = t.parseRange(v, defaultCount)
		if err != nil {
			return err
		}
	}
	checks, err := disasm.CrossCheck(t.img, t.cache, start, end)
	if err != nil {
		return err
	}

	disagreements := xcheckPrint(checks, t.stdout, all)
	fmt.Fprintf(t.stdout, "%d instructions, %d disagreements\n", len(checks), disagreements)
	return nil
}

func gotoCommand(t *Term, args string) error {
	if args == "" {
		return errors.New("wrong number of arguments: goto <address>")
	}
	addr, err := t.parseAddr(args)
	if err != nil {
		return err
	}
	if addr%ppc64.InstructionLength != 0 {
		return fmt.Errorf("%w: %#x", disasm.ErrUnaligned, addr)
	}
	if addr < t.img.Base || addr >= t.img.End() {
		return fmt.Errorf("address %#x outside of image [%#x, %#x)", addr, t.img.Base, t.img.End())
	}
	t.pc = addr
	fmt.Fprintf(t.stdout, "%#x\n", t.pc)
	return nil
}

func imageCommand(t *Term, args string) error {
	fmt.Fprintf(t.stdout, "base:         %#x\n", t.img.Base)
	fmt.Fprintf(t.stdout, "end:          %#x\n", t.img.End())
	fmt.Fprintf(t.stdout, "instructions: %d\n", len(t.img.Data)/ppc64.InstructionLength)
	fmt.Fprintf(t.stdout, "current:      %#x\n", t.pc)
	fmt.Fprintf(t.stdout, "cached words: %d/%d\n", t.cache.Len(), t.cacheSize)
	return nil
}

func (c *Commands) sourceCommand(t *Term, args string) error {
	if len(args) == 0 {
		return fmt.Errorf("wrong number of arguments: source <filename>")
	}

	if filepath.Ext(args) == ".star" {
		_, err := t.starlarkEnv.Execute(args, nil, "main")
		return err
	}

	if args == "-" {
		return t.starlarkEnv.REPL()
	}

	return c.executeFile(t, args)
}

func (c *Commands) executeFile(t *Term, name string) error {
	fh, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	lineno := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineno++

		if line == "" || line[0] == '#' {
			continue
		}

		if err := c.Call(line, t); err != nil {
			if _, isExitRequest := err.(ExitRequestError); isExitRequest {
				return err
			}
			fmt.Fprintf(t.stdout, "%s:%d: %v\n", name, lineno, err)
		}
	}

	return scanner.Err()
}

func transcript(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	truncate, fileOnly, disable := false, false, false
	path := ""
	for _, arg := range v {
		switch arg {
		case "-x":
			fileOnly = true
		case "-t":
			truncate = true
		case "-off":
			disable = true
		default:
			if path != "" || strings.HasPrefix(arg, "-") {
				return fmt.Errorf("unrecognized option %q", arg)
			}
			path = arg
		}
	}

	if disable {
		if path != "" {
			return errors.New("output file specified with -off")
		}
		return t.stdout.CloseTranscript()
	}
	if path == "" {
		return errors.New("no output file specified")
	}

	flags := os.O_APPEND | os.O_WRONLY | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	}
	fh, err := os.OpenFile(path, flags, 0660)
	if err != nil {
		return err
	}
	if err := t.stdout.CloseTranscript(); err != nil {
		fh.Close()
		return err
	}
	t.stdout.TranscribeTo(fh, fileOnly)
	return nil
}

// ExitRequestError is returned when the user
// exits the terminal.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exitCommand(t *Term, args string) error {
	return ExitRequestError{}
}
