package libemit

import (
	"github.com/stretchr/testify/mock"
)

// mockSink records listener invocations through testify's mock machinery,
// so tests can assert on the bound context and the dispatched arguments.
type mockSink struct {
	mock.Mock

	tapHandle func()
}

func (m *mockSink) Handle(ctx any, args ...any) {
	if m.tapHandle != nil {
		m.tapHandle()
	}
	callArgs := make([]any, 0, len(args)+1)
	callArgs = append(callArgs, ctx)
	callArgs = append(callArgs, args...)
	m.Called(callArgs...)
}
