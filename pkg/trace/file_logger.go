package trace

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger streams events as a sequence of CBOR items. It is safe for
// concurrent use.
type FileLogger struct {
	mu  sync.Mutex
	out io.WriteCloser
	enc *cbor.Encoder // nil once closed

	dropped atomic.Uint64
}

// NewFileLogger opens path for appending, creating it if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return NewStreamLogger(f), nil
}

// NewStreamLogger returns a FileLogger writing to w. Close closes w.
func NewStreamLogger(w io.WriteCloser) *FileLogger {
	return &FileLogger{out: w, enc: newStreamEncoder(w)}
}

// Log appends event. Events that cannot be written are counted in Dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enc == nil {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.dropped.Add(1)
	}
}

// Dropped returns how many events failed to write.
func (l *FileLogger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close closes the underlying writer. Later calls to Log and Close do
// nothing.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enc == nil {
		return nil
	}
	l.enc = nil
	return l.out.Close()
}

var _ Logger = (*FileLogger)(nil)
