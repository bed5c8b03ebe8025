package projection

import "github.com/maydaypets/platform/internal/domain"

// Builder is the stateful ingestion wrapper around Replay. It retains
// the event sequence for one subject and re-derives the projection from
// scratch on every change: full replay over tens of events is cheap,
// and it rules out incremental-state corruption. A Builder assumes a
// single logical owner; concurrent writers must serialize at the
// log-append layer.
type Builder struct {
	events []domain.Event
	proj   Projection
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{proj: Empty()}
}

// Apply appends one event and re-derives the projection over the whole
// retained sequence. On an unprocessable event the sequence is left
// unchanged and the error returned.
func (b *Builder) Apply(ev domain.Event) error {
	next := append(append([]domain.Event(nil), b.events...), ev)
	proj, err := Replay(next)
	if err != nil {
		return err
	}
	b.events = next
	b.proj = proj
	return nil
}

// Build replaces the retained sequence wholesale and re-derives. Used
// when hydrating from persisted storage.
func (b *Builder) Build(events []domain.Event) error {
	retained := append([]domain.Event(nil), events...)
	proj, err := Replay(retained)
	if err != nil {
		return err
	}
	b.events = retained
	b.proj = proj
	return nil
}

// Get returns the current projection snapshot. After any sequence of
// Apply/Build calls it equals Replay over the retained sequence.
func (b *Builder) Get() Projection {
	return b.proj
}

// Events returns a copy of the retained sequence.
func (b *Builder) Events() []domain.Event {
	return append([]domain.Event(nil), b.events...)
}

// Reset clears the builder back to the empty projection. Used between
// independent subjects.
func (b *Builder) Reset() {
	b.events = nil
	b.proj = Empty()
}
