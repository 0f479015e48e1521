package libemit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketPromotesFromSingleToMany(t *testing.T) {
	b := &bucket{}

	fn := Listener(func(any, ...any) {})

	first := newListenerRecord(fn, "a", false)
	b.add(first)
	require.Equal(t, 1, b.len())
	require.Equal(t, []*listenerRecord{first}, b.records())

	second := newListenerRecord(fn, "b", false)
	b.add(second)
	require.Equal(t, 2, b.len())
	require.Equal(t, []*listenerRecord{first, second}, b.records())
}

func TestBucketDemotesBackToSingle(t *testing.T) {
	b := &bucket{}

	fn := Listener(func(any, ...any) {})

	first := newListenerRecord(fn, "a", false)
	second := newListenerRecord(fn, "b", false)
	third := newListenerRecord(fn, "c", false)
	b.add(first)
	b.add(second)
	b.add(third)

	b.removeExact(second)
	require.Equal(t, []*listenerRecord{first, third}, b.records())

	b.removeExact(first)
	require.Equal(t, 1, b.len())
	require.Equal(t, []*listenerRecord{third}, b.records())

	// Another registration after demotion keeps ordering intact.
	b.add(second)
	require.Equal(t, []*listenerRecord{third, second}, b.records())
}

func TestBucketRecordsIsASnapshot(t *testing.T) {
	b := &bucket{}

	fn := Listener(func(any, ...any) {})

	first := newListenerRecord(fn, "a", false)
	second := newListenerRecord(fn, "b", false)
	b.add(first)
	b.add(second)

	snap := b.records()
	b.removeExact(first)

	require.Equal(t, []*listenerRecord{first, second}, snap)
	require.Equal(t, []*listenerRecord{second}, b.records())
}

func TestBucketRemoveMatching(t *testing.T) {
	var calls int

	fnA := Listener(func(any, ...any) { calls++ })
	fnB := Listener(func(any, ...any) { calls-- })

	b := &bucket{}
	persistent := newListenerRecord(fnA, "ctx", false)
	once := newListenerRecord(fnA, "ctx", true)
	other := newListenerRecord(fnB, "ctx", false)
	b.add(persistent)
	b.add(once)
	b.add(other)

	// Restricting to once records spares the persistent one.
	b.removeMatching(persistent.ptr, nil, false, true)
	require.Equal(t, []*listenerRecord{persistent, other}, b.records())

	// A context mismatch removes nothing.
	b.removeMatching(persistent.ptr, "elsewhere", true, false)
	require.Equal(t, 2, b.len())

	b.removeMatching(persistent.ptr, "ctx", true, false)
	require.Equal(t, []*listenerRecord{other}, b.records())
}
