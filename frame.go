package libemit

import (
	"context"
	"fmt"
)

type FrameType byte

const (
	DataFrame  FrameType = 1
	CloseFrame FrameType = 8
	PingFrame  FrameType = 9
)

func (t FrameType) Is(other FrameType) bool {
	return t == other
}

func (t FrameType) IsData() bool {
	return t.Is(DataFrame)
}

func (t FrameType) IsPing() bool {
	return t.Is(PingFrame)
}

func (t FrameType) IsClose() bool {
	return t.Is(CloseFrame)
}

// Frame is one outbound unit on the wire: an encoded dispatch, a
// keep-alive ping or a close notice.
type Frame struct {
	FrameType FrameType
	Payload   []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{type=%d,payload=%s}", f.FrameType, f.Payload)
}

func NewFrame(ft FrameType, payload []byte) Frame {
	return Frame{FrameType: ft, Payload: payload}
}

func NewDataFrame(payload []byte) Frame {
	return NewFrame(DataFrame, payload)
}

func NewPingFrame(payload []byte) Frame {
	return NewFrame(PingFrame, payload)
}

type (
	CloseChan chan struct{}

	// FrameConn is a one-way transport for outbound frames.
	FrameConn interface {
		// Open establishes the underlying connection.
		// It returns once the connection is ready to accept writes.
		Open(ctx context.Context) error

		// Write ships a single frame to the peer.
		Write(f Frame) error

		// Close terminates the connection and cleans up its resources.
		Close()

		// CloseChan returns a channel that will be closed when the
		// connection is closed. This can be used to monitor the
		// connection's closing event.
		CloseChan() CloseChan

		// CloseErr returns an error that explains why the connection was
		// closed. If the connection closed normally, CloseErr returns nil.
		CloseErr() error
	}

	FrameConnFactory func(ctx context.Context) FrameConn
)
