package libemit

import (
	"reflect"
	"sync"
)

type (
	// Listener is the unit of behavior registered under an event key. The
	// first argument carries the context value bound at registration time,
	// which defaults to the emitter itself. The remaining arguments are
	// whatever the Emit caller supplied.
	Listener func(ctx any, args ...any)

	// Emitter maps event keys to ordered listener buckets and dispatches
	// synchronously on the caller's goroutine, in registration order. Any
	// comparable type works as a key: strings for named events, private
	// caller-defined types for opaque tokens.
	//
	// The map is guarded internally so concurrent hosts may share an
	// instance, but the lock is never held across a listener invocation.
	// Listeners are free to mutate the emitter, including emitting again,
	// from inside their own callback.
	//
	// The zero value is not usable; use New.
	Emitter[K comparable] struct {
		buckets map[K]*bucket
		mu      sync.RWMutex
	}
)

// New returns a new, empty Emitter.
func New[K comparable]() *Emitter[K] {
	return &Emitter[K]{buckets: make(map[K]*bucket)}
}

// On registers a listener for the given event. Registering the same
// function twice creates two independent records, both of which fire.
// Panics with ErrNilListener when fn is nil; no mutation happens then.
func (e *Emitter[K]) On(event K, fn Listener) *Emitter[K] {
	return e.add(event, fn, nil, false)
}

// OnWith registers a listener with an explicit context value, passed as
// the first argument on every invocation and usable to narrow removals.
// A nil ctx falls back to the emitter itself.
func (e *Emitter[K]) OnWith(event K, fn Listener, ctx any) *Emitter[K] {
	return e.add(event, fn, ctx, false)
}

// Once registers a listener that is removed right after being selected
// for its first dispatch, before its callback runs. A once listener that
// emits its own event from inside its callback will not find itself
// registered anymore.
func (e *Emitter[K]) Once(event K, fn Listener) *Emitter[K] {
	return e.add(event, fn, nil, true)
}

// OnceWith is Once with an explicit context value.
func (e *Emitter[K]) OnceWith(event K, fn Listener, ctx any) *Emitter[K] {
	return e.add(event, fn, ctx, true)
}

// AddListener is an alias for On.
func (e *Emitter[K]) AddListener(event K, fn Listener) *Emitter[K] {
	return e.On(event, fn)
}

func (e *Emitter[K]) add(event K, fn Listener, ctx any, once bool) *Emitter[K] {
	if fn == nil {
		panic(ErrNilListener)
	}
	if ctx == nil {
		ctx = e
	}
	rec := newListenerRecord(fn, ctx, once)

	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.buckets[event]
	if !ok {
		b = &bucket{}
		e.buckets[event] = b
	}
	b.add(rec)
	return e
}

// Emit synchronously invokes every listener registered for the event, in
// registration order as of the moment the call starts, passing args to
// each one. Listeners added or removed by a running listener take effect
// on the next dispatch only; the exception is once-removal, which is
// applied against live storage before the once callback runs. Returns
// whether a listener bucket existed for the event.
//
// A panicking listener propagates to the caller and the remaining
// listeners of that dispatch are not invoked. Callers that need isolation
// must wrap their callbacks before registering them.
func (e *Emitter[K]) Emit(event K, args ...any) bool {
	e.mu.RLock()
	b, ok := e.buckets[event]
	if !ok {
		e.mu.RUnlock()
		return false
	}
	recs := b.records()
	e.mu.RUnlock()

	for _, rec := range recs {
		if rec.once {
			e.removeRecord(event, rec)
		}
		rec.fn(rec.ctx, args...)
	}
	return true
}

// removeRecord detaches one exact record from live storage.
func (e *Emitter[K]) removeRecord(event K, rec *listenerRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.buckets[event]
	if !ok {
		return
	}
	b.removeExact(rec)
	if b.len() == 0 {
		delete(e.buckets, event)
	}
}

// Off removes every record under the event whose function is identical to
// fn, regardless of bound context or once flag. A nil fn removes the whole
// bucket. Unknown events are a no-op.
//
// Function identity follows the function's code pointer, so two closures
// produced by the same closure body are indistinguishable; bind distinct
// context values and use OffWith to tell such registrations apart.
func (e *Emitter[K]) Off(event K, fn Listener) *Emitter[K] {
	return e.remove(event, fn, nil, false, false)
}

// OffWith narrows Off: a non-nil ctx only matches records bound to that
// exact context, and onceOnly restricts matches to once records.
func (e *Emitter[K]) OffWith(event K, fn Listener, ctx any, onceOnly bool) *Emitter[K] {
	return e.remove(event, fn, ctx, ctx != nil, onceOnly)
}

// RemoveListener is an alias for Off.
func (e *Emitter[K]) RemoveListener(event K, fn Listener) *Emitter[K] {
	return e.Off(event, fn)
}

func (e *Emitter[K]) remove(event K, fn Listener, ctx any, hasCtx, onceOnly bool) *Emitter[K] {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.buckets[event]
	if !ok {
		return e
	}
	if fn == nil {
		delete(e.buckets, event)
		return e
	}
	b.removeMatching(reflect.ValueOf(fn).Pointer(), ctx, hasCtx, onceOnly)
	if b.len() == 0 {
		delete(e.buckets, event)
	}
	return e
}

// RemoveAllListeners clears the buckets for the given events, or resets
// the whole emitter in one step when called with no arguments.
func (e *Emitter[K]) RemoveAllListeners(events ...K) *Emitter[K] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(events) == 0 {
		e.buckets = make(map[K]*bucket)
		return e
	}
	for _, event := range events {
		delete(e.buckets, event)
	}
	return e
}

// EventNames returns a snapshot of every key that currently has at least
// one listener. Order follows Go map enumeration and is not stable.
func (e *Emitter[K]) EventNames() []K {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.buckets) == 0 {
		return nil
	}
	names := make([]K, 0, len(e.buckets))
	for k := range e.buckets {
		names = append(names, k)
	}
	return names
}

// Listeners returns a copy of the functions registered under the event,
// in dispatch order. Empty when the event has no bucket.
func (e *Emitter[K]) Listeners(event K) []Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.buckets[event]
	if !ok {
		return nil
	}
	recs := b.records()
	out := make([]Listener, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.fn)
	}
	return out
}

// ListenerCount returns the number of records currently registered under
// the event; 0 when absent.
func (e *Emitter[K]) ListenerCount(event K) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if b, ok := e.buckets[event]; ok {
		return b.len()
	}
	return 0
}

// Len returns the number of events with at least one listener.
func (e *Emitter[K]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.buckets)
}
