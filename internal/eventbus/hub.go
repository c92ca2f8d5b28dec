package eventbus

import (
	"context"
	"errors"

	"github.com/tuai/tuaid/pkg/model"
)

// Two underlying rings per spec.md §4.7: one shared by process and file
// events, one for connection ("Network") events — each capacity ≈ 1000.
const (
	processFileCapacity = 1000
	connectionCapacity  = 1000
)

// Hub is the event bus the tracker (C6) publishes onto and every consumer
// (RPC watch streams, the TUI) subscribes from.
type Hub struct {
	processFiles *Ring[model.Event]
	connections  *Ring[model.Event]
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		processFiles: NewRing[model.Event](processFileCapacity),
		connections:  NewRing[model.Event](connectionCapacity),
	}
}

// Publish routes ev to the ring matching its kind.
func (h *Hub) Publish(ev model.Event) {
	if ev.Kind == model.EventNetwork {
		h.connections.Publish(ev)
		return
	}
	h.processFiles.Publish(ev)
}

// Handle is a live subscription yielding merged events from both rings in
// arrival order relative to each ring (no cross-ring total order is
// promised, matching spec.md §5).
type Handle struct {
	out    chan item
	ctx    context.Context
	cancel context.CancelFunc
}

type item struct {
	ev      model.Event
	skipped uint64 // > 0 means this item reports a lag, not an event
}

// Subscribe returns a Handle the caller must read from and eventually
// Close. Behind the scenes it fans in from both rings.
func (h *Hub) Subscribe(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	handle := &Handle{out: make(chan item, 64), ctx: ctx, cancel: cancel}

	pump := func(sub *Subscription[model.Event]) {
		for {
			ev, err := sub.Receive(ctx)
			if err != nil {
				var lagErr *LaggedError
				if errors.As(err, &lagErr) {
					n := lagErr.N
					if n == 0 {
						n = 1
					}
					select {
					case handle.out <- item{skipped: n}:
					case <-ctx.Done():
						return
					}
					continue
				}
				return // ctx canceled
			}
			select {
			case handle.out <- item{ev: ev}:
			case <-ctx.Done():
				return
			}
		}
	}

	go pump(h.processFiles.Subscribe())
	go pump(h.connections.Subscribe())

	return handle
}

// Next blocks for the next event. ok is false once the handle's context
// has been canceled. skipped is > 0 when the subscriber fell behind one of
// the underlying rings, reporting how many values were lost; no event is
// carried in that case (spec.md §8 property 7, "Lagged(n) with n >= 1").
func (hd *Handle) Next() (ev model.Event, skipped uint64, ok bool) {
	select {
	case it := <-hd.out:
		return it.ev, it.skipped, true
	case <-hd.ctx.Done():
		return model.Event{}, 0, false
	}
}

// Close stops the handle's fan-in goroutines. Safe to call more than once.
func (hd *Handle) Close() {
	hd.cancel()
}
