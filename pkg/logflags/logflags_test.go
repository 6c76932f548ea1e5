package logflags

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMakeLogger_usingLoggerFactory(t *testing.T) {
	if loggerFactory != nil {
		t.Fatalf("expected loggerFactory to be nil; but was <%v>", loggerFactory)
	}
	defer func() {
		loggerFactory = nil
	}()
	logOut = &bufferWriter{}
	defer func() {
		logOut = nil
	}()

	expectedLogger := &logrusLogger{}
	SetLoggerFactory(func(level logrus.Level, fields Fields, out io.Writer) Logger {
		if level != logrus.TraceLevel {
			t.Fatalf("expected level to be <%v>; but was <%v>", logrus.TraceLevel, level)
		}
		if len(fields) != 1 || fields["layer"] != "lifter" {
			t.Fatalf("expected fields to be {'layer':'lifter'}; but was <%v>", fields)
		}
		if out != logOut {
			t.Fatalf("expected out to be <%v>; but was <%v>", logOut, out)
		}
		return expectedLogger
	})

	actual := makeLogger(logrus.TraceLevel, Fields{"layer": "lifter"})
	if actual != expectedLogger {
		t.Fatalf("expected actual to <%v>; but was <%v>", expectedLogger, actual)
	}
}

func TestMakeFlaggableLogger(t *testing.T) {
	for _, tc := range []struct {
		flag  bool
		level logrus.Level
	}{
		{false, logrus.ErrorLevel},
		{true, logrus.DebugLevel},
	} {
		actual := makeFlaggableLogger(tc.flag, Fields{"layer": "decoder"})
		entry, ok := actual.(*logrusLogger)
		if !ok {
			t.Fatalf("expected actual to be of type <%v>; but was <%v>", reflect.TypeOf((*logrusLogger)(nil)), reflect.TypeOf(actual))
		}
		if entry.Logger.Level != tc.level {
			t.Fatalf("flag %v: expected level <%v>; but was <%v>", tc.flag, tc.level, entry.Logger.Level)
		}
		if entry.Logger.Formatter != textFormatterInstance {
			t.Fatalf("expected formatter <%v>; but was <%v>", textFormatterInstance, entry.Logger.Formatter)
		}
		if len(entry.Data) != 1 || entry.Data["layer"] != "decoder" {
			t.Fatalf("expected data to be {'layer':'decoder'}; but was <%v>", entry.Data)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	buf := &bufferWriter{}
	logOut = buf
	defer func() {
		logOut = nil
	}()

	makeLogger(logrus.DebugLevel, Fields{"layer": "dap", "seq": 3}).Debugf("hello %d", 1)
	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("debug dap seq=3 hello 1\n")) {
		t.Fatalf("unexpected log line %q", out)
	}
}

func TestSetup(t *testing.T) {
	defer func() {
		decoder, lifter, dap, repl, xcheck = false, false, false, false, false
	}()

	if err := Setup(false, "lifter", ""); err != errLogstrWithoutLog {
		t.Fatalf("expected %v, got %v", errLogstrWithoutLog, err)
	}
	if err := Setup(true, "lifter,dap", ""); err != nil {
		t.Fatal(err)
	}
	if !Lifter() || !DAP() || Decoder() || REPL() {
		t.Fatalf("wrong layers enabled: decoder=%v lifter=%v dap=%v repl=%v", Decoder(), Lifter(), DAP(), REPL())
	}
}

type bufferWriter struct {
	bytes.Buffer
}

func (bw *bufferWriter) Close() error {
	return nil
}
