package services

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Event types emitted off the request path.
const (
	EventListingViewed       = "listing_viewed"
	EventBookingRequested    = "booking_requested"
	EventBookingStatusChange = "booking_status_change"
	EventReviewPosted        = "review_posted"
)

// Event is a side effect detached from its originating request.
type Event struct {
	Type      string
	UserID    uint // recipient, when the event targets a user
	ActorID   uint
	ListingID uint
	BookingID uint
	Message   string
}

// Emitter delivers events to a handler on a single worker goroutine.
// Delivery is best-effort at-most-once: Emit never blocks the request, and
// events are dropped (and counted) when the buffer is full or the emitter is
// closed.
type Emitter struct {
	ch      chan Event
	handler func(Event)
	log     *logrus.Logger
	dropped uint64
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	once    sync.Once
}

func NewEmitter(buffer int, handler func(Event), log *logrus.Logger) *Emitter {
	if buffer <= 0 {
		buffer = 256
	}
	e := &Emitter{
		ch:      make(chan Event, buffer),
		handler: handler,
		log:     log,
	}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *Emitter) run() {
	defer e.wg.Done()
	for ev := range e.ch {
		e.handler(ev)
	}
}

// Emit enqueues the event without blocking. A full buffer or a closed emitter
// drops the event. The read lock keeps the send and Close's channel close from
// racing, which would otherwise panic.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		atomic.AddUint64(&e.dropped, 1)
		e.log.WithField("type", ev.Type).Warn("emitter closed, dropping event")
		return
	}

	select {
	case e.ch <- ev:
	default:
		atomic.AddUint64(&e.dropped, 1)
		e.log.WithField("type", ev.Type).Warn("event buffer full, dropping event")
	}
}

// Dropped reports how many events were discarded since startup.
func (e *Emitter) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// Close stops the worker after draining buffered events. Emits arriving
// after Close are counted as dropped.
func (e *Emitter) Close() {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.ch)
		e.mu.Unlock()
	})
	e.wg.Wait()
}
