package libemit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoopFrameConnDiscardsWrites(t *testing.T) {
	conn := NewNoopFrameConn()

	require.NoError(t, conn.Open(context.Background()))
	require.NoError(t, conn.Write(NewDataFrame([]byte("dropped"))))
	require.NoError(t, conn.CloseErr())

	conn.Close()
	conn.Close() // idempotent

	select {
	case <-conn.CloseChan():
	default:
		t.Fatal("close chan should be closed")
	}
}

func TestForwarderOverNoopTransport(t *testing.T) {
	em := New[string]()

	fw := NewForwarder(
		NewNoopLogger(),
		em,
		NewNoopFrameConnFactory(),
		NewJSONEncoder[string](),
		fastBackoff,
		time.Hour,
		"evt",
	)

	require.NoError(t, fw.Open(context.Background()))
	require.True(t, em.Emit("evt", "into the void"))

	fw.Close()
	require.Zero(t, em.Len())
}
