package terminal

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-delve/liner"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/go-delve/ppc64dec/pkg/config"
	"github.com/go-delve/ppc64dec/pkg/disasm"
	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/terminal/colorize"
	"github.com/go-delve/ppc64dec/pkg/terminal/starbind"
)

const historyFile string = ".ppc64dec_history"

// Default highlighting, used for the colours left empty in the
// configuration.
const (
	defaultColorMnemonic  = "\033[1m"
	defaultColorRegister  = "\033[36m"
	defaultColorImmediate = "\033[33m"
	defaultColorAddress   = "\033[34m"
)

// Term represents the terminal running ppc64dec.
type Term struct {
	conf     *config.Config
	prompt   string
	line     *liner.State
	cmds     *Commands
	dumb     bool
	stdout   *transcriptWriter
	InitFile string

	img       *disasm.Image
	cache     *disasm.Cache
	cacheSize int

	// pc is the address commands use when none is given.
	pc uint64

	colorEscapes map[colorize.Style]string
	starlarkEnv  *starbind.Env
}

// New returns a new Term decoding the code in img.
func New(img *disasm.Image, conf *config.Config) *Term {
	if conf == nil {
		conf = &config.Config{}
	}
	cmds := DecodeCommands()
	if conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	var w io.Writer
	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb" || !isatty.IsTerminal(os.Stdout.Fd())
	if dumb {
		w = os.Stdout
	} else {
		w = colorable.NewColorableStdout()
	}

	return newTerm(img, conf, cmds, w, dumb)
}

func newTerm(img *disasm.Image, conf *config.Config, cmds *Commands, w io.Writer, dumb bool) *Term {
	t := &Term{
		conf:   conf,
		prompt: "(ppc64dec) ",
		cmds:   cmds,
		dumb:   dumb,
		stdout: newTranscriptWriter(w),
		img:    img,
		pc:     img.Base,
	}
	t.applyConfig()
	t.starlarkEnv = starbind.New(starlarkContext{t}, t.stdout)
	return t
}

// applyConfig brings the cache and the colours in line with t.conf.
func (t *Term) applyConfig() {
	if size := t.conf.GetCacheSize(); t.cache == nil || size != t.cacheSize {
		cache, err := disasm.NewCache(size)
		if err != nil {
			logflags.REPLLogger().Errorf("could not create cache of size %d: %v", size, err)
		}
		t.cache, t.cacheSize = cache, size
	}

	t.colorEscapes = nil
	if t.dumb || !t.conf.GetSyntaxHighlight() {
		return
	}
	escape := func(configured, def string) string {
		if configured != "" {
			return configured
		}
		return def
	}
	t.colorEscapes = map[colorize.Style]string{
		colorize.MnemonicStyle:  escape(t.conf.ColorMnemonic, defaultColorMnemonic),
		colorize.RegisterStyle:  escape(t.conf.ColorRegister, defaultColorRegister),
		colorize.ImmediateStyle: escape(t.conf.ColorImmediate, defaultColorImmediate),
		colorize.AddressStyle:   defaultColorAddress,
	}
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	if t.line != nil {
		t.line.Close()
	}
	t.stdout.CloseTranscript()
}

func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		t.starlarkEnv.Cancel()
	}
}

// Run begins running ppc64dec in the terminal.
func (t *Term) Run() (int, error) {
	t.line = liner.NewLiner()
	defer t.Close()

	// A SIGINT interrupts running scripts.
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	defer signal.Stop(ch)
	go t.sigintGuard(ch)

	t.line.SetCompleter(t.cmds.complete)

	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Printf("Unable to load history file: %v.", err)
	}

	f, err := os.Open(fullHistoryFile)
	if err != nil {
		f, err = os.Create(fullHistoryFile)
		if err != nil {
			fmt.Printf("Unable to open history file: %v. History will not be saved for this session.", err)
		}
	}
	if f != nil {
		t.line.ReadHistory(f)
		f.Close()
	}
	fmt.Fprintf(t.stdout, "Image of %d bytes at %#x. Type 'help' for list of commands.\n", len(t.img.Data), t.img.Base)

	if t.InitFile != "" {
		err := t.cmds.executeFile(t, t.InitFile)
		if err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Error executing init file: %s\n", err)
		}
	}

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit()
			}
			return 1, fmt.Errorf("prompt for input failed: %v", err)
		}
		t.stdout.Echo(t.prompt + cmdstr + "\n")

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
		t.stdout.Flush()
	}
}

// Call runs a single terminal command without prompting, the way
// non-interactive front ends use the terminal.
func (t *Term) Call(cmdstr string) error {
	defer t.stdout.Flush()
	return t.cmds.Call(cmdstr, t)
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit() (int, error) {
	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Println("Error saving history file:", err)
		return 0, nil
	}
	if f, err := os.OpenFile(fullHistoryFile, os.O_RDWR, 0666); err == nil {
		_, err = t.line.WriteHistory(f)
		if err != nil {
			fmt.Println("readline history error:", err)
		}
		f.Close()
	}
	return 0, nil
}
