package transport

import (
	"bytes"
	"io"
	"sync"
)

// MemoryPipe returns two connected in-memory transports. Writes never block;
// reads block until data arrives or the pipe is closed.
func MemoryPipe() (client, server Transport) {
	up, down := newBuffer(), newBuffer()
	return &memoryTransport{r: down, w: up}, &memoryTransport{r: up, w: down}
}

type memoryTransport struct {
	r, w *buffer
}

func (m *memoryTransport) Read(p []byte) (int, error)  { return m.r.read(p) }
func (m *memoryTransport) Write(p []byte) (int, error) { return m.w.write(p) }

func (m *memoryTransport) Close() error {
	m.r.close()
	m.w.close()
	return nil
}

type buffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   bytes.Buffer
	closed bool
}

func newBuffer() *buffer {
	b := &buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *buffer) write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := b.data.Write(p)
	b.cond.Broadcast()
	return n, err
}

func (b *buffer) read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.data.Len() == 0 {
		if b.closed {
			return 0, io.EOF
		}
		b.cond.Wait()
	}
	return b.data.Read(p)
}

func (b *buffer) close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
