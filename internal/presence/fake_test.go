package presence

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// fakeTransport delivers frames pushed by the test and records writes.
type fakeTransport struct {
	in chan []byte

	mu         sync.Mutex
	writes     []string
	failWrites int
	closed     bool
	closeCode  int
	remoteCode int
	done       chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case b := <-t.in:
		return b, nil
	case <-t.done:
		t.mu.Lock()
		code := t.remoteCode
		t.mu.Unlock()
		if code == 0 {
			return nil, errors.New("use of closed network connection")
		}
		return nil, &websocket.CloseError{Code: code}
	}
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("write on closed transport")
	}
	if t.failWrites > 0 {
		t.failWrites--
		return errors.New("not ready")
	}
	t.writes = append(t.writes, string(data))
	return nil
}

func (t *fakeTransport) Close(code int, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.closeCode = code
	close(t.done)
	return nil
}

// remoteClose simulates the service closing the socket with code, or a
// dropped connection without a close frame when code is 0.
func (t *fakeTransport) remoteClose(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.remoteCode = code
	close(t.done)
}

func (t *fakeTransport) written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

func (t *fakeTransport) count(frame string) int {
	n := 0
	for _, w := range t.written() {
		if w == frame {
			n++
		}
	}
	return n
}

func (t *fakeTransport) isClosed() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed, t.closeCode
}

// fakeDialer hands out fakeTransports. When gate is non-nil, Dial blocks
// until the gate is closed or ctx is cancelled.
type fakeDialer struct {
	gate       chan struct{}
	failWrites int

	mu         sync.Mutex
	transports []*fakeTransport
	dials      int
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Transport, error) {
	d.mu.Lock()
	d.dials++
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t := newFakeTransport()
	t.failWrites = d.failWrites
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.mu.Unlock()
	return t, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.transports) {
		return nil
	}
	return d.transports[i]
}

func (d *fakeDialer) liveTransports() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.transports {
		if closed, _ := t.isClosed(); !closed {
			n++
		}
	}
	return n
}
