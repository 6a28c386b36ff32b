package alert

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// lineFormatter writes the bare message, one alert per line.
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return append([]byte(e.Message), '\n'), nil
}

// errWriter remembers the first write error; logrus only reports write
// failures on stderr.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

func newAlertLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(lineFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

func writeLines(w io.Writer, lines []string) error {
	ew := &errWriter{w: w}
	l := newAlertLogger(ew)
	for _, line := range lines {
		l.Info(line)
		if ew.err != nil {
			return fmt.Errorf("write alert: %w", ew.err)
		}
	}
	return nil
}

// FileSink writes alerts to a log file. The file only exists after a run
// that produced alerts.
type FileSink struct {
	Path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Write replaces the file contents with one line per alert. With no alerts
// an existing file is removed and nothing is created.
func (s *FileSink) Write(lines []string) error {
	if len(lines) == 0 {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", s.Path, err)
		}
		return nil
	}

	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.Path, err)
	}
	if err := writeLines(f, lines); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriterSink writes alerts to any writer, e.g. stdout for dry runs.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(lines []string) error {
	return writeLines(s.W, lines)
}
