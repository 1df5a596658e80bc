// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
)

// Reporter defines the interface for writing suite results to an output.
type Reporter interface {
	// Write renders a finished suite.
	Write(report *scenario.SuiteReport) error
	// Close flushes the report and closes any underlying file handle.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	cleanup := func() {
		if !isStdOut {
			writer.Close()
		}
	}

	r, err := NewWithWriter(format, writer)
	if err != nil {
		cleanup()
		return nil, err
	}
	return r, nil
}

// NewWithWriter creates a reporter that takes ownership of w.
func NewWithWriter(format string, w io.WriteCloser) (Reporter, error) {
	switch strings.ToLower(format) {
	case config.FormatText, "":
		return &TextReporter{w: w}, nil
	case config.FormatJSON:
		return &JSONReporter{w: w}, nil
	case config.FormatJUnit:
		return &JUnitReporter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// ToWriter creates a reporter on w that leaves w open on Close.
func ToWriter(format string, w io.Writer) (Reporter, error) {
	return NewWithWriter(format, &nopWriteCloser{w})
}
