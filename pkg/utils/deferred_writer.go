package utils

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// DeferredWriter holds console output in memory while something else owns the
// terminal, and replays it on Flush. With a positive Limit, writes beyond the
// limit are counted but not kept. Safe for concurrent use.
type DeferredWriter struct {
	Limit int

	mu      sync.Mutex
	buf     bytes.Buffer
	skipped int
}

// Write stores p, or counts it as skipped once Limit is reached. It never
// fails so a logger writing to it is never interrupted.
func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Limit > 0 && d.buf.Len()+len(p) > d.Limit {
		d.skipped += len(p)
		return len(p), nil
	}
	return d.buf.Write(p)
}

// Flush writes all buffered data to w and clears the buffer.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	skipped := d.skipped
	d.skipped = 0

	if d.buf.Len() > 0 {
		if _, err := d.buf.WriteTo(w); err != nil {
			return err
		}
	}

	if skipped > 0 {
		_, err := fmt.Fprintf(w, "(%d bytes of log output skipped)\n", skipped)
		return err
	}
	return nil
}
