package libemit

import "context"

type mockFrameConn struct {
	OpenFunc      func(ctx context.Context) error
	WriteFunc     func(f Frame) error
	CloseFunc     func()
	CloseChanFunc func() CloseChan
	CloseErrFunc  func() error
}

func (m *mockFrameConn) Open(ctx context.Context) error {
	return m.OpenFunc(ctx)
}

func (m *mockFrameConn) Write(f Frame) error {
	return m.WriteFunc(f)
}

func (m *mockFrameConn) Close() {
	m.CloseFunc()
}

func (m *mockFrameConn) CloseChan() CloseChan {
	return m.CloseChanFunc()
}

func (m *mockFrameConn) CloseErr() error {
	return m.CloseErrFunc()
}
