package libemit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConn struct {
	frames    chan Frame
	closeC    CloseChan
	closeOnce sync.Once
}

func newTestConn() *testConn {
	return &testConn{
		frames: make(chan Frame, 64),
		closeC: make(CloseChan),
	}
}

func (c *testConn) drop() {
	c.closeOnce.Do(func() {
		close(c.closeC)
	})
}

func (c *testConn) asFrameConn() FrameConn {
	return &mockFrameConn{
		OpenFunc:      func(context.Context) error { return nil },
		WriteFunc:     func(f Frame) error { c.frames <- f; return nil },
		CloseFunc:     c.drop,
		CloseChanFunc: func() CloseChan { return c.closeC },
		CloseErrFunc:  func() error { return nil },
	}
}

func waitFrame(t *testing.T, frames chan Frame) Frame {
	t.Helper()

	select {
	case f := <-frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return Frame{}
	}
}

func fastBackoff(int) time.Duration { return time.Millisecond }

func TestForwarderShipsDispatchesInOrder(t *testing.T) {
	em := New[string]()
	conn := newTestConn()

	fw := NewForwarder(
		NewNoopLogger(),
		em,
		func(context.Context) FrameConn { return conn.asFrameConn() },
		NewJSONEncoder[string](),
		fastBackoff,
		time.Hour,
		"greet", "farewell",
	)

	require.NoError(t, fw.Open(context.Background()))
	defer fw.Close()

	require.Equal(t, 1, em.ListenerCount("greet"))
	require.Equal(t, 1, em.ListenerCount("farewell"))

	em.Emit("greet", "Alice")
	em.Emit("farewell", "Bob")

	first := waitFrame(t, conn.frames)
	require.True(t, first.FrameType.IsData())
	require.JSONEq(t, `{"event":"greet","args":["Alice"]}`, string(first.Payload))

	second := waitFrame(t, conn.frames)
	require.JSONEq(t, `{"event":"farewell","args":["Bob"]}`, string(second.Payload))
}

func TestForwarderIgnoresUnrelatedEvents(t *testing.T) {
	em := New[string]()
	conn := newTestConn()

	fw := NewForwarder(
		NewNoopLogger(),
		em,
		func(context.Context) FrameConn { return conn.asFrameConn() },
		NewJSONEncoder[string](),
		fastBackoff,
		time.Hour,
		"tracked",
	)

	require.NoError(t, fw.Open(context.Background()))
	defer fw.Close()

	em.Emit("untracked", "nope")
	em.Emit("tracked")

	f := waitFrame(t, conn.frames)
	require.JSONEq(t, `{"event":"tracked"}`, string(f.Payload))
	require.Empty(t, conn.frames)
}

func TestForwarderCloseDetachesFromEmitter(t *testing.T) {
	em := New[string]()
	conn := newTestConn()

	fw := NewForwarder(
		NewNoopLogger(),
		em,
		func(context.Context) FrameConn { return conn.asFrameConn() },
		NewJSONEncoder[string](),
		fastBackoff,
		time.Hour,
		"a", "b",
	)

	require.NoError(t, fw.Open(context.Background()))
	require.Equal(t, 2, em.Len())

	fw.Close()

	require.Zero(t, em.Len())
	require.False(t, em.Emit("a"))

	select {
	case <-fw.CloseChan():
	default:
		t.Fatal("close chan should be closed")
	}
}

func TestForwarderCloseLeavesForeignListenersAlone(t *testing.T) {
	em := New[string]()
	conn := newTestConn()

	em.On("a", func(any, ...any) {})

	fw := NewForwarder(
		NewNoopLogger(),
		em,
		func(context.Context) FrameConn { return conn.asFrameConn() },
		NewJSONEncoder[string](),
		fastBackoff,
		time.Hour,
		"a",
	)

	require.NoError(t, fw.Open(context.Background()))
	require.Equal(t, 2, em.ListenerCount("a"))

	fw.Close()

	require.Equal(t, 1, em.ListenerCount("a"))
}

func TestForwarderSendsKeepAlivePings(t *testing.T) {
	em := New[string]()
	conn := newTestConn()

	fw := NewForwarder(
		NewNoopLogger(),
		em,
		func(context.Context) FrameConn { return conn.asFrameConn() },
		NewJSONEncoder[string](),
		fastBackoff,
		5*time.Millisecond,
		"evt",
	)

	require.NoError(t, fw.Open(context.Background()))
	defer fw.Close()

	f := waitFrame(t, conn.frames)
	require.True(t, f.FrameType.IsPing())
}

func TestForwarderRedialsWhenConnectionDrops(t *testing.T) {
	em := New[string]()

	var (
		dials atomic.Int32
		mu    sync.Mutex
		conns []*testConn
	)

	factory := func(context.Context) FrameConn {
		dials.Add(1)
		conn := newTestConn()
		mu.Lock()
		conns = append(conns, conn)
		mu.Unlock()
		return conn.asFrameConn()
	}

	fw := NewForwarder(
		NewNoopLogger(),
		em,
		factory,
		NewJSONEncoder[string](),
		fastBackoff,
		time.Hour,
		"evt",
	)

	require.NoError(t, fw.Open(context.Background()))
	defer fw.Close()

	require.EqualValues(t, 1, dials.Load())

	mu.Lock()
	conns[0].drop()
	mu.Unlock()

	require.Eventually(t, func() bool {
		return dials.Load() == 2
	}, 2*time.Second, time.Millisecond)

	em.Emit("evt", "after-reconnect")

	mu.Lock()
	second := conns[1]
	mu.Unlock()

	f := waitFrame(t, second.frames)
	require.JSONEq(t, `{"event":"evt","args":["after-reconnect"]}`, string(f.Payload))
}
