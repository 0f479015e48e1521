package libemit

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type (
	// emitterHooks is the slice of the Emitter surface the forwarder needs.
	emitterHooks[K comparable] interface {
		OnWith(event K, fn Listener, ctx any) *Emitter[K]
		Off(event K, fn Listener) *Emitter[K]
	}

	// Forwarder bridges an in-process Emitter to a remote peer: every
	// dispatch of one of the configured events is encoded as a frame and
	// shipped over a FrameConn. Forwarding is one-way and best-effort; a
	// full send queue drops the dispatch rather than blocking Emit.
	//
	// The connection is kept alive with periodic pings and redialed with
	// backoff when it drops.
	Forwarder[K comparable] struct {
		emitter     emitterHooks[K]
		events      []K
		hooks       []Listener // one per event, kept around for detaching
		encode      EncodeFunc[K]
		connFactory FrameConnFactory
		calculator  BackoffCalculator
		logger      Logger

		pingInterval time.Duration

		conn   FrameConn
		connMu sync.RWMutex

		send      chan Frame
		closeC    CloseChan
		openOnce  sync.Once
		closeOnce sync.Once
	}
)

func NewForwarder[K comparable](
	logger Logger,
	emitter *Emitter[K],
	connFactory FrameConnFactory,
	encode EncodeFunc[K],
	calculator BackoffCalculator,
	pingInterval time.Duration,
	events ...K,
) *Forwarder[K] {
	return &Forwarder[K]{
		logger:       logger.WithField("type", "forwarder"),
		emitter:      emitter,
		events:       events,
		encode:       encode,
		connFactory:  connFactory,
		calculator:   calculator,
		pingInterval: pingInterval,
		send:         make(chan Frame, 64),
		closeC:       make(CloseChan),
	}
}

// Open dials the first connection, attaches one listener per configured
// event and spawns the write loop. It only executes once, subsequent
// calls have no effect.
func (f *Forwarder[K]) Open(ctx context.Context) (err error) {
	f.openOnce.Do(func() {
		var conn FrameConn

		conn, err = f.dial(ctx)
		if err != nil {
			return
		}
		f.setConn(conn)
		f.attach()

		go f.run(ctx)
	})

	return
}

// Close detaches the forwarder's listeners from the emitter and tears the
// connection down. Dispatches after Close are no longer forwarded.
// It only executes once, subsequent calls have no effect.
func (f *Forwarder[K]) Close() {
	f.closeOnce.Do(func() {
		for i, hook := range f.hooks {
			f.emitter.Off(f.events[i], hook)
		}
		close(f.closeC)

		if conn := f.getConn(); conn != nil {
			conn.Close()
		}
	})
}

// CloseChan returns a channel that will be closed when the forwarder
// shuts down.
func (f *Forwarder[K]) CloseChan() CloseChan {
	return f.closeC
}

// attach registers one listener per configured event. The forwarder
// itself is bound as the listener context so its hooks stay
// distinguishable from caller listeners on the same events.
func (f *Forwarder[K]) attach() {
	f.hooks = make([]Listener, len(f.events))
	for i, event := range f.events {
		event := event
		hook := func(_ any, args ...any) {
			f.enqueue(event, args)
		}
		f.hooks[i] = hook
		f.emitter.OnWith(event, hook, f)
	}
}

func (f *Forwarder[K]) enqueue(event K, args []any) {
	frame, err := f.encode(event, args)
	if err != nil {
		f.logger.Errorf("cannot encode %v dispatch: %s", event, err)
		return
	}

	select {
	case <-f.closeC:
	case f.send <- frame:
	default:
		f.logger.Warnf("send queue full, dropping %v dispatch", event)
	}
}

// dial opens a connection, retrying with backoff until it succeeds or the
// context is done.
func (f *Forwarder[K]) dial(ctx context.Context) (FrameConn, error) {
	attempts := 0

	for {
		attempts++

		conn := f.connFactory(ctx)

		err := conn.Open(ctx)
		if err == nil {
			return conn, nil
		}

		// cleanup resources of the failed attempt
		conn.Close()

		var ttw time.Duration

		if errors.Is(err, ErrCannotConnect) {
			// Try to establish the connection asap
			ttw = time.Second
			f.logger.Infof("cannot connect, retrying asap due to: %s", err)
		} else {
			ttw = f.calculator(attempts)
			f.logger.Infof("cannot connect after %s, waiting %s", err, ttw)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.closeC:
			return nil, ErrForwarderClosed
		case <-time.After(ttw):
		}
	}
}

// run is the write loop: it ships queued frames, sends keep-alive pings
// on pingInterval and redials when the connection drops.
func (f *Forwarder[K]) run(ctx context.Context) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()
	defer func() {
		if conn := f.getConn(); conn != nil {
			conn.Close()
		}
	}()

	connClosed := f.getConn().CloseChan()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.closeC:
			return
		case <-ticker.C:
			if err := f.getConn().Write(NewPingFrame(nil)); err != nil {
				f.logger.Errorf("keep-alive write failed: %s", err)
			}
		case frame := <-f.send:
			if err := f.getConn().Write(frame); err != nil {
				f.logger.Errorf("frame write failed: %s", err)
			}
		case <-connClosed:
			prev := f.getConn()
			prev.Close()
			f.logger.Infof("connection lost due to %s, reconnecting", prev.CloseErr())

			conn, err := f.dial(ctx)
			if err != nil {
				f.logger.Errorf("cannot reconnect: %s", err)
				f.Close()
				return
			}
			f.setConn(conn)
			connClosed = conn.CloseChan()
		}
	}
}

func (f *Forwarder[K]) getConn() FrameConn {
	f.connMu.RLock()
	defer f.connMu.RUnlock()

	return f.conn
}

func (f *Forwarder[K]) setConn(conn FrameConn) {
	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
}
