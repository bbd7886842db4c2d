package transport

import (
	"bufio"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/tarm/serial"
)

// SerialConsole writes one text line per classification cycle and flushes
// before returning. There is no subscription concept: lines always go out.
type SerialConsole struct {
	out     io.Writer
	w       *bufio.Writer
	closer  io.Closer
	newline string

	lines  uint64
	errors uint64
}

// NewSerialConsole writes to any stream, such as os.Stdout.
func NewSerialConsole(w io.Writer) *SerialConsole {
	return &SerialConsole{out: w, w: bufio.NewWriterSize(w, 512), newline: "\n"}
}

// OpenSerialConsole opens a UART. Lines end in CRLF like a device println.
func OpenSerialConsole(port string, baud int) (*SerialConsole, error) {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial console %s: %w", port, err)
	}
	return &SerialConsole{out: p, w: bufio.NewWriterSize(p, 512), closer: p, newline: "\r\n"}, nil
}

// WriteLine writes line plus the line terminator and flushes.
func (c *SerialConsole) WriteLine(line string) error {
	c.w.WriteString(line)
	c.w.WriteString(c.newline)
	if err := c.w.Flush(); err != nil {
		atomic.AddUint64(&c.errors, 1)
		// drop whatever is left so the next cycle starts clean
		c.w.Reset(c.out)
		return fmt.Errorf("serial console: %w", err)
	}
	atomic.AddUint64(&c.lines, 1)
	return nil
}

// Stats returns lines written and failed flushes.
func (c *SerialConsole) Stats() (lines, errors uint64) {
	return atomic.LoadUint64(&c.lines), atomic.LoadUint64(&c.errors)
}

func (c *SerialConsole) Close() error {
	_ = c.w.Flush()
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
