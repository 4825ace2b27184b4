// Package notify broadcasts Waystation change events to registered
// subscribers.
//
// A Notifier is an explicit value owned by whoever orchestrates the engine;
// there is no process-wide registry. Publish fans an event out to every
// matching subscriber concurrently and returns a Delivery the caller waits on.
package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/waystation/internal/models"
)

// Kind tags a change event.
type Kind string

// Event kinds.
const (
	NewMark        Kind = "new-mark"
	EditMark       Kind = "edit-mark"
	NewResource    Kind = "new-resource"
	EditResource   Kind = "edit-resource"
	NewWaystation  Kind = "new-waystation"
	EditWaystation Kind = "edit-waystation"
)

// Kinds lists every event kind.
var Kinds = []Kind{NewMark, EditMark, NewResource, EditResource, NewWaystation, EditWaystation}

// Event carries the Waystation produced by a mutation and, for mark and
// resource events, the entity concerned.
type Event struct {
	Kind       Kind
	Waystation models.Waystation
	Mark       *models.Mark
	Resource   *models.Resource
}

// clone gives each subscriber its own snapshot.
func (e Event) clone() Event {
	out := Event{Kind: e.Kind, Waystation: e.Waystation.Clone()}
	if e.Mark != nil {
		m := e.Mark.Clone()
		out.Mark = &m
	}
	if e.Resource != nil {
		r := *e.Resource
		out.Resource = &r
	}
	return out
}

// Handler receives one event. A returned error is reported through the
// Delivery of the publish that triggered it.
type Handler func(ctx context.Context, ev Event) error

type subscription struct {
	handler Handler
	kinds   map[Kind]struct{}
}

func (s subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Notifier holds the subscriber list. The zero value is ready to use.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int
	closed atomic.Bool
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers h for the given kinds, or for every kind when none are
// given. The returned function removes the subscription.
func (n *Notifier) Subscribe(h Handler, kinds ...Kind) (unsubscribe func()) {
	if h == nil || n.closed.Load() {
		return func() {}
	}
	sub := subscription{handler: h}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	n.mu.Lock()
	if n.closed.Load() {
		n.mu.Unlock()
		return func() {}
	}
	if n.subs == nil {
		n.subs = make(map[int]subscription)
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = sub
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Len returns the number of registered subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Publish delivers ev to every subscriber registered for ev.Kind at the time
// of the call. Subscribers run concurrently, each on its own copy of the
// event. After Close, Publish returns an already completed Delivery.
func (n *Notifier) Publish(ctx context.Context, ev Event) *Delivery {
	d := &Delivery{done: make(chan struct{})}
	if n.closed.Load() {
		close(d.done)
		return d
	}

	n.mu.RLock()
	targets := make([]Handler, 0, len(n.subs))
	for _, s := range n.subs {
		if s.wants(ev.Kind) {
			targets = append(targets, s.handler)
		}
	}
	n.mu.RUnlock()

	snapshot := ev.clone()
	go func() {
		defer close(d.done)
		var g errgroup.Group
		for _, h := range targets {
			g.Go(func() error { return h(ctx, snapshot.clone()) })
		}
		d.err = g.Wait()
	}()
	return d
}

// Close drops every subscriber and turns later publishes into no-ops.
func (n *Notifier) Close() {
	if n.closed.CompareAndSwap(false, true) {
		n.mu.Lock()
		n.subs = nil
		n.mu.Unlock()
	}
}

// Delivery is the completion handle of one Publish.
type Delivery struct {
	done chan struct{}
	err  error
}

// Done is closed once every subscriber has returned.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until every subscriber has returned and reports the first
// subscriber error.
func (d *Delivery) Wait() error {
	<-d.done
	return d.err
}
