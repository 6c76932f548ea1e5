package terminal

import (
	"bufio"
	"io"

	"github.com/mattn/go-colorable"
)

// transcriptWriter is the output of the terminal. Everything written to it
// goes to out and, while a transcript is active, to the transcript file with
// colour escapes stripped.
type transcriptWriter struct {
	out io.Writer

	// quiet suppresses out while a transcript is active.
	quiet  bool
	file   *bufio.Writer
	closer io.Closer
}

func newTranscriptWriter(out io.Writer) *transcriptWriter {
	return &transcriptWriter{out: out}
}

func (w *transcriptWriter) Write(p []byte) (int, error) {
	if w.file == nil {
		return w.out.Write(p)
	}
	if !w.quiet {
		if n, err := w.out.Write(p); err != nil {
			return n, err
		}
	}
	return w.file.Write(p)
}

// Echo writes s to the transcript only, used for prompts and commands read
// by liner.
func (w *transcriptWriter) Echo(s string) {
	if w.file != nil {
		w.file.WriteString(s)
	}
}

func (w *transcriptWriter) Flush() {
	if w.file != nil {
		w.file.Flush()
	}
}

// TranscribeTo starts a transcript to fh, closing the previous one. With
// quiet set nothing is written to out until the transcript is closed.
func (w *transcriptWriter) TranscribeTo(fh io.WriteCloser, quiet bool) {
	w.CloseTranscript()
	w.file = bufio.NewWriter(colorable.NewNonColorable(fh))
	w.closer = fh
	w.quiet = quiet
}

// CloseTranscript flushes and closes the active transcript, if any.
func (w *transcriptWriter) CloseTranscript() error {
	if w.file == nil {
		return nil
	}
	w.file.Flush()
	err := w.closer.Close()
	w.file, w.closer, w.quiet = nil, nil, false
	return err
}
