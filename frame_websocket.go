package libemit

import (
	"sync"
	"time"

	"context"
	"io"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/fasthttp/websocket"
)

type (
	// DialErrAdapter lets embedders reclassify dial failures, e.g. to map
	// a proprietary error payload onto one of the sentinel errors.
	DialErrAdapter func(*websocket.Conn, *http.Response, error) error

	// WsFrameConn ships frames over a websocket connection. Only outbound
	// application data is carried; inbound traffic is drained so control
	// frames are honored and peer-initiated closes are noticed.
	// It implements the FrameConn interface.
	WsFrameConn struct {
		dialErrAdapter  DialErrAdapter
		dialParamsRepo  DialParamsRepo
		logger          Logger
		dialer          *websocket.Dialer
		conn            *websocket.Conn
		closeChan       CloseChan
		closeOnce       sync.Once
		closeReason     error
		closeReasonOnce sync.Once
		writeTimeout    time.Duration
		send            chan Frame // send frames to be shipped over the wire
	}
)

func NewWebsocketFrameConn(
	dialer *websocket.Dialer,
	dialParamsRepo DialParamsRepo,
	logger Logger,
	writeTimeout time.Duration,
	dialErrAdapter DialErrAdapter,
) *WsFrameConn {
	return &WsFrameConn{
		dialErrAdapter: dialErrAdapter,
		dialer:         dialer,
		dialParamsRepo: dialParamsRepo,
		writeTimeout:   writeTimeout,
		send:           make(chan Frame),
		closeChan:      make(CloseChan),
		logger:         logger.WithField("net", "ws_frame_conn"),
	}
}

func NewWebsocketFrameConnFactory(
	logger Logger,
	dialer *websocket.Dialer,
	dialParamsRepo DialParamsRepo,
	writeTimeout time.Duration,
	dialErrAdapter DialErrAdapter,
) FrameConnFactory {
	return func(ctx context.Context) FrameConn {
		return NewWebsocketFrameConn(
			dialer,
			dialParamsRepo,
			logger,
			writeTimeout,
			dialErrAdapter,
		)
	}
}

// Write ships a frame over the websocket connection.
func (w *WsFrameConn) Write(f Frame) error {
	select {
	case w.send <- f:
		return nil
	case <-w.closeChan:
		return ErrConnClosed
	}
}

// Close terminates the websocket connection.
// It ensures that all resources related to the connection are cleaned up.
func (w *WsFrameConn) Close() {
	w.safeClose()
}

// Open initiates the websocket connection. It returns when the connection
// is successfully established or an error occurs.
func (w *WsFrameConn) Open(ctx context.Context) error {
	return w.start(ctx)
}

// CloseChan returns a channel that will be closed when the websocket
// connection is closed.
func (w *WsFrameConn) CloseChan() CloseChan {
	return w.closeChan
}

// CloseErr returns an error that explains why the connection was closed.
// If the connection closed normally, CloseErr returns nil.
func (w *WsFrameConn) CloseErr() error {
	return w.closeReason
}

func (w *WsFrameConn) start(ctx context.Context) error {
	p, err := w.dialParamsRepo.Get(ctx)

	if err != nil {
		w.logger.Errorf("cannot get dial params due to %s: ", err)
		return err
	}

	conn, resp, err := w.dialer.Dial(p.URL.String(), p.Header)

	if err = w.handleDialError(conn, resp, err); err != nil {
		w.logger.Errorf("connection err to %s: %s, %+v", p.URL.String(), err, resp)
		return err
	}

	w.logger.Debugf("success opening connection to %s", p.URL.String())

	w.conn = conn

	// Answer pings ourselves instead of relying on the default handler,
	// and record peer-initiated closes as the close reason.
	conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		return w.conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(w.writeTimeout),
		)
	})

	conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugln("<= [CLOSE]")
		w.setCloseReason(errors.Wrapf(ErrConnClosed, "close frame %d: %s", code, text))
		return nil
	})

	go w.read(ctx)
	go w.write(ctx)

	return nil
}

// read drains inbound traffic. Forwarding is one-way, so data frames are
// dropped; reading is still required for control frames to be processed
// and for broken connections to surface.
func (w *WsFrameConn) read(ctx context.Context) {
	defer w.safeClose()

	for {
		select {
		case <-w.closeChan:
			w.setCloseReason(ErrTerminated)
			return
		case <-ctx.Done():
			w.setCloseReason(ErrTerminated)
			return
		default:
			if _, _, err := w.conn.ReadMessage(); err != nil {
				w.logger.Errorf("error occurred on websocket read: %s", err)

				w.setCloseReason(errors.Wrap(
					ErrConnClosed,
					"error occurred on websocket read: "+err.Error(),
				))
				return
			}
			w.logger.Debugln("<= [DATA] (dropped)")
		}
	}
}

func (w *WsFrameConn) write(ctx context.Context) {
	defer w.safeClose()

	for {
		select {
		case <-w.closeChan:
			w.setCloseReason(ErrTerminated)
			return
		case <-ctx.Done():
			w.setCloseReason(ErrTerminated)
			return
		case f := <-w.send:
			deadline := time.Now().Add(w.writeTimeout)
			_ = w.conn.SetWriteDeadline(deadline)

			var err error

			switch f.FrameType {
			case PingFrame:
				w.logger.Debugln("=> [PING]")
				err = w.conn.WriteControl(websocket.PingMessage, f.Payload, deadline)
				if e, ok := err.(net.Error); ok && e.Temporary() {
					err = nil
				}
			case CloseFrame:
				w.logger.Infoln("closing connection from our side")
				_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				w.setCloseReason(ErrTerminated)
				return
			case DataFrame:
				w.logger.Debugf("=> [DATA] %s", f.Payload)
				err = w.conn.WriteMessage(websocket.TextMessage, f.Payload)
			}

			if err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					w.setCloseReason(ErrConnClosed)
				} else {
					w.setCloseReason(errors.Wrap(ErrConnClosed, err.Error()))
				}
			}
		}
	}
}

func (w *WsFrameConn) safeClose() {
	w.closeOnce.Do(w.close)
}

func (w *WsFrameConn) close() {
	if w.conn != nil {
		_ = w.conn.Close()
	}
	close(w.closeChan)
}

func (w *WsFrameConn) setCloseReason(err error) {
	w.closeReasonOnce.Do(func() {
		w.closeReason = err
	})
}

func (w *WsFrameConn) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if w.dialErrAdapter != nil {
		return w.dialErrAdapter(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}
