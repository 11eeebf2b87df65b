package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because the context
// was canceled.
var ErrInputCancelled = errors.New("input canceled")

// NonBlockingReader reads lines from a terminal-style input while honoring
// context cancellation. A canceled read returns immediately; the underlying
// blocking read keeps running and its result is discarded, which is why reads
// are serialized with a mutex.
type NonBlockingReader struct {
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewNonBlockingReader wraps reader. A nil reader is a programming error.
func NewNonBlockingReader(reader io.Reader) *NonBlockingReader {
	if reader == nil {
		panic("reader cannot be nil")
	}
	return &NonBlockingReader{reader: bufio.NewReader(reader)}
}

// ReadLine reads one line, trimmed of surrounding whitespace. It returns
// ErrInputCancelled if ctx is canceled first, and the underlying read error
// (io.EOF included) otherwise.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		value, err := r.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}
