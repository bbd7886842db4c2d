package views

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// CSVWriter is a buffered CSV file for recorded frames. Rows are encoded
// into a bufio.Writer; Flush is driven by the recorder's ticker so a row
// write never waits on the disk.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	row  []string
	rows uint64
}

// NewCSVWriter creates path and writes header when it is non-empty.
func NewCSVWriter(path string, bufSizeBytes int, header []string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}
	if bufSizeBytes <= 0 {
		bufSizeBytes = 64 * 1024
	}
	bw := bufio.NewWriterSize(f, bufSizeBytes)
	w := &CSVWriter{
		file: f,
		buf:  bw,
		csv:  csv.NewWriter(bw),
		row:  make([]string, 0, len(header)),
	}
	if len(header) > 0 {
		if err := w.csv.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv write header: %w", err)
		}
	}
	return w, nil
}

// WriteFrame appends one row: the timestamp followed by every value.
func (w *CSVWriter) WriteFrame(tsMs uint64, values []int16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.row = append(w.row[:0], strconv.FormatUint(tsMs, 10))
	for _, v := range values {
		w.row = append(w.row, strconv.Itoa(int(v)))
	}
	_ = w.csv.Write(w.row) // sticky; reported by Flush
	w.rows++
}

// Flush pushes buffered rows to the file.
func (w *CSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes and closes the file.
func (w *CSVWriter) Close() error {
	ferr := w.Flush()
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return err
	}
	return ferr
}

// Rows returns the number of data rows written, header excluded.
func (w *CSVWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}
