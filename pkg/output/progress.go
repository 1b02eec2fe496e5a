package output

import (
	"fmt"
	"io"
	"sync"
)

// ByteProgress is an io.Writer that forwards everything to a destination
// while reporting the running byte count on a status stream. The
// containerize command wraps its stdout archive sink with one so the user
// sees the stream advancing on stderr without corrupting the archive.
type ByteProgress struct {
	dest   io.Writer
	status io.Writer
	label  string

	mu           sync.Mutex
	written      int64
	lastReported int64
	enabled      bool
}

// renderStep is how many bytes must pass between status updates. Container
// archives run to hundreds of megabytes; re-rendering every Write would
// drown the terminal.
const renderStep = 1 << 20

// NewByteProgress returns a ByteProgress forwarding to dest and reporting
// on status.
func NewByteProgress(dest, status io.Writer, label string) *ByteProgress {
	return &ByteProgress{dest: dest, status: status, label: label, enabled: true}
}

// SetEnabled turns status reporting off (or back on) without affecting the
// forwarded bytes. Disable it when status would interleave with structured
// output on the same stream.
func (p *ByteProgress) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Write forwards b to the destination and re-renders the status line each
// time another renderStep bytes have passed.
func (p *ByteProgress) Write(b []byte) (int, error) {
	n, err := p.dest.Write(b)

	p.mu.Lock()
	p.written += int64(n)
	if p.enabled && p.written-p.lastReported >= renderStep {
		p.lastReported = p.written
		p.render()
	}
	p.mu.Unlock()

	return n, err
}

// Written returns the total byte count forwarded so far.
func (p *ByteProgress) Written() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Done renders the final byte count and terminates the status line.
func (p *ByteProgress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.render()
	_, _ = fmt.Fprintln(p.status)
}

func (p *ByteProgress) render() {
	_, _ = fmt.Fprintf(p.status, "\r%s: %s", p.label, formatBytes(p.written))
}

// formatBytes renders n in the largest binary unit that keeps the number
// readable.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
