package cmds

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-delve/ppc64dec/pkg/config"
	"github.com/go-delve/ppc64dec/pkg/disasm"
	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
	"github.com/go-delve/ppc64dec/pkg/terminal"
	"github.com/go-delve/ppc64dec/pkg/version"
	"github.com/go-delve/ppc64dec/service"
	"github.com/go-delve/ppc64dec/service/dap"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// base is the load address of images.
	base addrValue
	// start is the first address a command operates on, zero for the image base.
	start addrValue
	// count is the number of instructions a command operates on, zero for all.
	count int
	// addr is the DAP server listen address.
	addr string
	// initFile is the path to initialization file.
	initFile string
	// liftTree prints lifted statements as trees.
	liftTree bool
	// xcheckAll prints every cross-checked instruction.
	xcheckAll bool
	// form overrides the instruction form of fields.
	form string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const ppc64decCommandLongDesc = `ppc64dec decodes 64-bit big-endian PowerPC machine code.

Every instruction word is decoded once, producing both its assembly text and
its translation into a small intermediate representation. Images are flat
files of instruction words loaded at the address given by --base.`

// addrValue is a pflag.Value holding an address, it accepts any base
// strconv.ParseUint understands.
type addrValue uint64

var _ pflag.Value = (*addrValue)(nil)

func (a *addrValue) String() string {
	return fmt.Sprintf("%#x", uint64(*a))
}

func (a *addrValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return fmt.Errorf("%q is not an address", s)
	}
	*a = addrValue(n)
	return nil
}

func (a *addrValue) Type() string {
	return "address"
}

// New returns an initialized command tree.
func New(docCall bool) *cobra.Command {
	// Config setup and load.
	var err error
	conf, err = config.LoadConfig()
	if err != nil && !docCall {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	base, start, count = 0, 0, 0

	// Main ppc64dec root command.
	rootCommand = &cobra.Command{
		Use:           "ppc64dec",
		Short:         "ppc64dec is a decoder and lifter for PowerPC64 machine code.",
		Long:          ppc64decCommandLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("base") {
				base = addrValue(conf.BaseAddress)
			}
			return logflags.Setup(log, logOutput, logDest)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logflags.Close()
		},
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable decoder logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'ppc64dec help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'ppc64dec help log').")
	rootCommand.PersistentFlags().VarP(&base, "base", "b", "Load address of the image.")

	rangeFlags := func(cmd *cobra.Command) {
		cmd.Flags().Var(&start, "start", "First address, defaults to the load address.")
		cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of instructions, defaults to the rest of the image.")
	}

	// 'disasm' subcommand.
	disasmCommand := &cobra.Command{
		Use:   "disasm <image>",
		Short: "Disassembles an image.",
		Long: `Disassembles an image.

Every instruction is printed with its address, the words that do not encode a
valid instruction are printed as '?'. Direct branches are followed by their
destination.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnImage(args[0], "disassemble")
		},
	}
	rangeFlags(disasmCommand)
	rootCommand.AddCommand(disasmCommand)

	// 'lift' subcommand.
	liftCommand := &cobra.Command{
		Use:   "lift <image>",
		Short: "Translates an image into the intermediate representation.",
		Long: `Translates an image into the intermediate representation.

All instructions are lifted into a single function, at most
max-lift-instructions of them (see the configuration file).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if liftTree {
				return runOnImage(args[0], "lift -tree")
			}
			return runOnImage(args[0], "lift")
		},
	}
	rangeFlags(liftCommand)
	liftCommand.Flags().BoolVarP(&liftTree, "tree", "t", false, "Print every statement as an expression tree.")
	rootCommand.AddCommand(liftCommand)

	// 'edges' subcommand.
	edgesCommand := &cobra.Command{
		Use:   "edges <image>",
		Short: "Lists the control flow edges of an image.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnImage(args[0], "edges")
		},
	}
	rangeFlags(edgesCommand)
	rootCommand.AddCommand(edgesCommand)

	// 'xcheck' subcommand.
	xcheckCommand := &cobra.Command{
		Use:   "xcheck <image>",
		Short: "Compares the decoder with golang.org/x/arch.",
		Long: `Compares the decoder with golang.org/x/arch.

Both decoders must agree on the validity and on the control flow kind of
every instruction. Only disagreements are printed unless --all is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if xcheckAll {
				return runOnImage(args[0], "xcheck -all")
			}
			return runOnImage(args[0], "xcheck")
		},
	}
	rangeFlags(xcheckCommand)
	xcheckCommand.Flags().BoolVar(&xcheckAll, "all", false, "Print every instruction.")
	rootCommand.AddCommand(xcheckCommand)

	// 'fields' subcommand.
	fieldsCommand := &cobra.Command{
		Use:   "fields <word>",
		Short: "Splits an instruction word into its fields.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := terminal.New(&disasm.Image{}, conf)
			defer term.Close()
			return term.Call(strings.TrimSpace("fields " + args[0] + " " + form))
		},
	}
	fieldsCommand.Flags().StringVar(&form, "form", "", "Instruction form, defaults to the one selected by the primary opcode.")
	rootCommand.AddCommand(fieldsCommand)

	// 'repl' subcommand.
	replCommand := &cobra.Command{
		Use:   "repl <image>",
		Short: "Starts an interactive terminal on an image.",
		Args:  cobra.ExactArgs(1),
		RunE:  replCmd,
	}
	replCommand.Flags().StringVar(&initFile, "init", "", "Init file, executed by the terminal.")
	rootCommand.AddCommand(replCommand)

	// 'script' subcommand.
	scriptCommand := &cobra.Command{
		Use:   "script <image> <script.star>",
		Short: "Runs a starlark script on an image.",
		Long: `Runs a starlark script on an image.

The script is executed and its main function, if any, is called. See 'help
source' in the terminal for the builtins available to scripts.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, err := newTerm(args[0])
			if err != nil {
				return err
			}
			defer term.Close()
			return term.Call("source " + args[1])
		},
	}
	rootCommand.AddCommand(scriptCommand)

	// 'dap' subcommand.
	dapCommand := &cobra.Command{
		Use:   "dap [image]",
		Short: "Starts a TCP server communicating via Debug Adaptor Protocol (DAP).",
		Long: `Starts a TCP server communicating via Debug Adaptor Protocol (DAP).

The server serves the disassembly and the memory of an image. The image is
either given on the command line or loaded by a launch request with the
'program' and 'base' attributes.
The server does not accept multiple client connections.`,
		Args: cobra.MaximumNArgs(1),
		RunE: dapCmd,
	}
	dapCommand.Flags().StringVarP(&addr, "listen", "l", "127.0.0.1:0", "DAP server listen address.")
	rootCommand.AddCommand(dapCommand)

	// 'commands' subcommand.
	rootCommand.AddCommand(&cobra.Command{
		Use:   "commands",
		Short: "Prints the documentation of terminal commands in markdown.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			terminal.DecodeCommands().WriteMarkdown(cmd.OutOrStdout())
		},
	})

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ppc64dec\n%s\n", version.DecoderVersion)
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolP("verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	decoder		Log invalid words and decoding decisions
	lifter		Log lifted instructions
	dap		Log all DAP messages
	repl		Log terminal commands
	xcheck		Log disagreements with golang.org/x/arch

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.

`,
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

var errEmptyImage = errors.New("image is empty")

func loadImage(path string) (*disasm.Image, error) {
	img, err := disasm.LoadImage(path, uint64(base))
	if err != nil {
		return nil, err
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, errEmptyImage)
	}
	if uint64(base)%ppc64.InstructionLength != 0 {
		return nil, fmt.Errorf("%w: load address %#x", disasm.ErrUnaligned, uint64(base))
	}
	return img, nil
}

func newTerm(path string) (*terminal.Term, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	return terminal.New(img, conf), nil
}

// runOnImage runs the terminal command cmdname over the range selected by
// --start and --count.
func runOnImage(path, cmdname string) error {
	img, err := loadImage(path)
	if err != nil {
		return err
	}
	term := terminal.New(img, conf)
	defer term.Close()

	first := uint64(start)
	if first == 0 {
		first = img.Base
	}
	n := count
	if n <= 0 {
		n = (len(img.Data) + ppc64.InstructionLength - 1) / ppc64.InstructionLength
	}
	return term.Call(fmt.Sprintf("%s %#x %d", cmdname, first, n))
}

func replCmd(cmd *cobra.Command, args []string) error {
	term, err := newTerm(args[0])
	if err != nil {
		return err
	}
	term.InitFile = initFile
	status, err := term.Run()
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("terminal exited with status %d", status)
	}
	return nil
}

func dapCmd(cmd *cobra.Command, args []string) error {
	var img *disasm.Image
	if len(args) > 0 {
		var err error
		img, err = loadImage(args[0])
		if err != nil {
			return err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("couldn't start listener: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "DAP server listening at: %s\n", listener.Addr())

	disconnectChan := make(chan struct{})
	server := dap.NewServer(&service.Config{
		Listener:       listener,
		Image:          img,
		CacheSize:      conf.GetCacheSize(),
		DisconnectChan: disconnectChan,
	})
	defer server.Stop()

	server.Run()
	waitForDisconnectSignal(disconnectChan)
	return nil
}

func waitForDisconnectSignal(disconnectChan chan struct{}) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	defer signal.Stop(ch)
	select {
	case <-ch:
	case <-disconnectChan:
	}
}
