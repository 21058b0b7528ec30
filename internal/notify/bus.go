// Package notify carries change notifications for the registry set, the
// assembly record and the questions collection. Consumers treat every
// notification as "recompute from the latest snapshot" — the payload names
// what changed, never the new value, so derived state (quorum, tallies) stays
// a pure function of store snapshots.
package notify

import "sync"

// Kind names the collection that changed.
type Kind string

const (
	KindRegistries Kind = "registries"
	KindAssembly   Kind = "assembly"
	KindQuestions  Kind = "questions"
)

// Change identifies a changed collection: the registry set of a list, one
// assembly record, or the questions of one assembly.
type Change struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`
}

type subKey struct {
	kind Kind
	key  string
}

// Bus is an in-process fanout of Change notifications. Publish never blocks:
// a subscriber that falls behind misses intermediate notifications, which is
// fine because each notification only says "re-read the snapshot".
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[subKey]map[int]chan Change
	taps []func(Change)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[subKey]map[int]chan Change)}
}

// Subscribe registers interest in one collection. The returned cancel func
// must be called to release the subscription.
func (b *Bus) Subscribe(kind Kind, key string) (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sk := subKey{kind: kind, key: key}
	if b.subs[sk] == nil {
		b.subs[sk] = make(map[int]chan Change)
	}
	id := b.next
	b.next++
	ch := make(chan Change, 1)
	b.subs[sk][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[sk]; ok {
			if ch, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}
		}
	}
	return ch, cancel
}

// Tap registers an observer invoked on every published change. Bridges use it
// to forward local changes to other instances; observers must not block.
func (b *Bus) Tap(fn func(Change)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taps = append(b.taps, fn)
}

// Publish fans a change out to current subscribers without blocking, and
// notifies every tap. A full subscriber channel already holds a pending
// "recompute" signal, so dropping the duplicate loses nothing.
func (b *Bus) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, tap := range b.taps {
		tap(c)
	}
	b.deliver(c)
}

// publishLocal delivers to subscribers without notifying taps. Bridges use it
// for remote changes: a change that arrived over the wire must never be
// broadcast back out, or two instances echo forever.
func (b *Bus) publishLocal(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.deliver(c)
}

// deliver assumes b.mu is held.
func (b *Bus) deliver(c Change) {
	for _, ch := range b.subs[subKey{kind: c.Kind, key: c.Key}] {
		select {
		case ch <- c:
		default:
		}
	}
}

func (b *Bus) PublishRegistries(listID string) { b.Publish(Change{Kind: KindRegistries, Key: listID}) }
func (b *Bus) PublishAssembly(id string)       { b.Publish(Change{Kind: KindAssembly, Key: id}) }
func (b *Bus) PublishQuestions(assemblyID string) {
	b.Publish(Change{Kind: KindQuestions, Key: assemblyID})
}

func (b *Bus) SubscribeRegistries(listID string) (<-chan Change, func()) {
	return b.Subscribe(KindRegistries, listID)
}

func (b *Bus) SubscribeAssembly(id string) (<-chan Change, func()) {
	return b.Subscribe(KindAssembly, id)
}

func (b *Bus) SubscribeQuestions(assemblyID string) (<-chan Change, func()) {
	return b.Subscribe(KindQuestions, assemblyID)
}
