package logflags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var decoder = false
var lifter = false
var dap = false
var repl = false
var xcheck = false

var logOut io.WriteCloser

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		return lf(level, fields, logOut)
	}
	logger := logrus.New().WithFields(logrus.Fields(fields))
	logger.Logger.Formatter = textFormatterInstance
	if logOut != nil {
		logger.Logger.Out = logOut
	}
	logger.Logger.Level = level
	return &logrusLogger{logger}
}

// makeFlaggableLogger returns a logger that logs at debug level when flag is
// set and only errors otherwise.
func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if !flag {
		return makeLogger(logrus.ErrorLevel, fields)
	}
	return makeLogger(logrus.DebugLevel, fields)
}

// Decoder returns true if region decoding should log reserved encodings and
// cache activity.
func Decoder() bool {
	return decoder
}

// DecoderLogger returns a logger for the disassembler.
func DecoderLogger() Logger {
	return makeFlaggableLogger(decoder, Fields{"layer": "decoder"})
}

// Lifter returns true if every lifted instruction should be dumped.
func Lifter() bool {
	return lifter
}

// LifterLogger returns a logger for the lifter.
func LifterLogger() Logger {
	return makeFlaggableLogger(lifter, Fields{"layer": "lifter"})
}

// DAP returns true if debug adapter protocol messages should be logged.
func DAP() bool {
	return dap
}

// DAPLogger returns a logger for dap servers.
func DAPLogger() Logger {
	return makeFlaggableLogger(dap, Fields{"layer": "dap"})
}

// REPL returns true if terminal commands should be logged.
func REPL() bool {
	return repl
}

// REPLLogger returns a logger for the terminal.
func REPLLogger() Logger {
	return makeFlaggableLogger(repl, Fields{"layer": "repl"})
}

// XCheck returns true if every comparison against the reference
// disassembler should be logged, not only mismatches.
func XCheck() bool {
	return xcheck
}

// XCheckLogger returns a logger for the cross-checker.
func XCheckLogger() Logger {
	return makeFlaggableLogger(xcheck, Fields{"layer": "xcheck"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr.
// If logDest is not empty logs will be redirected to the file descriptor or
// file path specified by logDest.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "ppc64dec-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %w", err)
			}
			logOut = fh
		}
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "decoder"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "decoder":
			decoder = true
		case "lifter":
			lifter = true
		case "dap":
			dap = true
		case "repl":
			repl = true
		case "xcheck":
			xcheck = true
		default:
			fmt.Fprintf(os.Stderr, "Warning: unknown log output value %q, run 'ppc64dec help log' for usage.\n", logcmd)
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

// textFormatter is a simplified version of logrus.TextFormatter that
// doesn't make logs unreadable when they are output to a text file or to a
// terminal that doesn't support colors.
type textFormatter struct {
}

var textFormatterInstance = &textFormatter{}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	fmt.Fprintf(b, "%s %s ", entry.Time.Format("2006-01-02T15:04:05Z07:00"), entry.Level)
	if layer, ok := entry.Data["layer"]; ok {
		fmt.Fprintf(b, "%s ", layer)
	}
	for k, v := range entry.Data {
		if k == "layer" {
			continue
		}
		fmt.Fprintf(b, "%s=%v ", k, v)
	}
	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}
