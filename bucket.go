package libemit

import "reflect"

// listenerRecord is a single registration. Records are handled by pointer
// so that once-removal can target the exact record selected during a
// dispatch, even when the same function was registered several times.
type listenerRecord struct {
	fn   Listener
	ptr  uintptr // function identity, used by targeted removal
	ctx  any
	once bool
}

func newListenerRecord(fn Listener, ctx any, once bool) *listenerRecord {
	return &listenerRecord{
		fn:   fn,
		ptr:  reflect.ValueOf(fn).Pointer(),
		ctx:  ctx,
		once: once,
	}
}

// matches reports whether the record satisfies a removal request. The
// context and once restrictions only apply when the caller asked for them.
func (r *listenerRecord) matches(ptr uintptr, ctx any, hasCtx, onceOnly bool) bool {
	if r.ptr != ptr {
		return false
	}
	if hasCtx && r.ctx != ctx {
		return false
	}
	if onceOnly && !r.once {
		return false
	}
	return true
}

// bucket holds the listeners registered under a single event key. A key
// with exactly one listener keeps its record inline; the slice is only
// allocated once a second registration arrives. The distinction is never
// observable, every accessor exposes an ordered-sequence view.
// An empty bucket must not stay stored; callers delete the map entry.
type bucket struct {
	one  *listenerRecord
	many []*listenerRecord
}

func (b *bucket) add(rec *listenerRecord) {
	switch {
	case b.many != nil:
		b.many = append(b.many, rec)
	case b.one != nil:
		b.many = []*listenerRecord{b.one, rec}
		b.one = nil
	default:
		b.one = rec
	}
}

func (b *bucket) len() int {
	if b.many != nil {
		return len(b.many)
	}
	if b.one != nil {
		return 1
	}
	return 0
}

// records returns a snapshot in registration order. Mutating the bucket
// afterwards does not affect a snapshot already taken.
func (b *bucket) records() []*listenerRecord {
	if b.many != nil {
		out := make([]*listenerRecord, len(b.many))
		copy(out, b.many)
		return out
	}
	if b.one != nil {
		return []*listenerRecord{b.one}
	}
	return nil
}

// removeExact drops the given record by identity. Used by once-dispatch,
// where the exact record is already known.
func (b *bucket) removeExact(rec *listenerRecord) {
	if b.one == rec {
		b.one = nil
		return
	}
	for i, r := range b.many {
		if r == rec {
			b.many = append(b.many[:i], b.many[i+1:]...)
			break
		}
	}
	b.compact()
}

// removeMatching keeps only records that do not satisfy the removal
// request, preserving the relative order of survivors.
func (b *bucket) removeMatching(ptr uintptr, ctx any, hasCtx, onceOnly bool) {
	if b.one != nil {
		if b.one.matches(ptr, ctx, hasCtx, onceOnly) {
			b.one = nil
		}
		return
	}
	kept := b.many[:0]
	for _, r := range b.many {
		if !r.matches(ptr, ctx, hasCtx, onceOnly) {
			kept = append(kept, r)
		}
	}
	b.many = kept
	b.compact()
}

// compact demotes a one-element slice back to the inline record and drops
// an emptied slice.
func (b *bucket) compact() {
	switch len(b.many) {
	case 0:
		b.many = nil
	case 1:
		b.one = b.many[0]
		b.many = nil
	}
}
