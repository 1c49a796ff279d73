package terminal

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned for operations on a closed channel or session.
var ErrClosed = errors.New("terminal channel closed")

// Channel is a bidirectional byte stream to an interactive shell.
type Channel interface {
	// Write sends raw bytes to the remote shell.
	Write(p []byte) (int, error)

	// Recv waits up to wait for the first chunk of output, then returns it
	// together with anything else already available. A zero wait never
	// blocks. Recv returns (nil, nil) when nothing arrived in time and
	// io.EOF once the remote side has closed and all output was consumed.
	Recv(wait time.Duration) ([]byte, error)

	// Close releases the underlying transport.
	Close() error
}

const chunkSize = 4096

// streamChannel adapts a reader/writer pair (such as the stdin/stdout pipes
// of an SSH shell) to Channel. A pump goroutine moves reader output into a
// buffered channel so reads can be bounded by a deadline.
type streamChannel struct {
	w      io.Writer
	closer func() error

	chunks  chan []byte
	done    chan struct{}
	readErr error

	closeOnce sync.Once
	closeErr  error
}

// NewStreamChannel starts pumping r and returns a Channel writing to w.
// closer is invoked once by Close.
func NewStreamChannel(r io.Reader, w io.Writer, closer func() error) Channel {
	c := &streamChannel{
		w:      w,
		closer: closer,
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go c.pump(r)
	return c
}

func (c *streamChannel) pump(r io.Reader) {
	defer close(c.chunks)
	for {
		buf := make([]byte, chunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case c.chunks <- buf[:n]:
			case <-c.done:
				c.readErr = ErrClosed
				return
			}
		}
		if err != nil {
			c.readErr = err
			return
		}
	}
}

func (c *streamChannel) Write(p []byte) (int, error) {
	select {
	case <-c.done:
		return 0, ErrClosed
	default:
	}
	return c.w.Write(p)
}

func (c *streamChannel) Recv(wait time.Duration) ([]byte, error) {
	var buf []byte
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				return nil, c.readErr
			}
			buf = append(buf, chunk...)
		case <-timer.C:
			return nil, nil
		case <-c.done:
			return nil, ErrClosed
		}
	}
	for {
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				if len(buf) > 0 {
					return buf, nil
				}
				return nil, c.readErr
			}
			buf = append(buf, chunk...)
		default:
			return buf, nil
		}
	}
}

func (c *streamChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closer != nil {
			c.closeErr = c.closer()
		}
	})
	return c.closeErr
}
