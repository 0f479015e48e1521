package libemit

import (
	"context"
	"sync"
)

// noopFrameConn accepts and discards every frame. Useful as a stand-in
// transport when forwarding is configured off.
type noopFrameConn struct {
	closeChan CloseChan
	closeOnce sync.Once
}

func NewNoopFrameConn() FrameConn {
	return &noopFrameConn{closeChan: make(CloseChan)}
}

// NewNoopFrameConnFactory returns a factory that produces a fresh discard
// connection per dial.
func NewNoopFrameConnFactory() FrameConnFactory {
	return func(ctx context.Context) FrameConn {
		return NewNoopFrameConn()
	}
}

func (n *noopFrameConn) Open(_ context.Context) error { return nil }

func (n *noopFrameConn) Write(Frame) error { return nil }

func (n *noopFrameConn) Close() {
	n.closeOnce.Do(func() {
		close(n.closeChan)
	})
}

func (n *noopFrameConn) CloseChan() CloseChan { return n.closeChan }

func (n *noopFrameConn) CloseErr() error { return nil }
