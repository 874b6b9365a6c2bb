package stream

import "sync"

// outbox is a session's private outbound path. It keeps two lanes with
// different delivery policies:
//
//   - send: a bounded FIFO channel for chat and control envelopes, which are
//     never coalesced or dropped. Overflow means the peer cannot keep up and
//     the session must be closed rather than block the broadcast loop.
//   - frames: at most one pending frame per source user. A newer frame from
//     the same source replaces the pending one, so a slow receiver gets the
//     freshest frame instead of a growing backlog.
//
// The fan-out engine only enqueues; the session's write pump is the sole
// consumer.
type outbox struct {
	send chan []byte

	mu     sync.Mutex
	frames map[string][]byte

	// order holds source IDs with a pending frame, oldest first, so draining
	// round-robins across senders instead of favoring one.
	order []string

	// frameReady wakes the write pump; capacity 1 makes signaling non-blocking.
	frameReady chan struct{}
}

func newOutbox(chatQueueSize int) *outbox {
	return &outbox{
		send:       make(chan []byte, chatQueueSize),
		frames:     make(map[string][]byte),
		frameReady: make(chan struct{}, 1),
	}
}

// enqueueControl appends to the FIFO lane without blocking. It returns false
// when the queue is at capacity.
func (o *outbox) enqueueControl(payload []byte) bool {
	select {
	case o.send <- payload:
		return true
	default:
		return false
	}
}

// enqueueFrame stores the frame in the source's slot, replacing any pending
// frame from the same source. It reports whether a pending frame was
// superseded.
func (o *outbox) enqueueFrame(source string, payload []byte) (replaced bool) {
	o.mu.Lock()
	if _, pending := o.frames[source]; pending {
		replaced = true
	} else {
		o.order = append(o.order, source)
	}
	o.frames[source] = payload
	o.mu.Unlock()

	o.wake()
	return replaced
}

// popFrame removes and returns the oldest pending frame. When more frames
// remain it re-arms the wake signal, so the write pump drains one frame per
// wake and stays responsive to the FIFO lane in between.
func (o *outbox) popFrame() ([]byte, bool) {
	o.mu.Lock()
	if len(o.order) == 0 {
		o.mu.Unlock()
		return nil, false
	}

	source := o.order[0]
	o.order = o.order[1:]
	payload := o.frames[source]
	delete(o.frames, source)
	remaining := len(o.order) > 0
	o.mu.Unlock()

	if remaining {
		o.wake()
	}
	return payload, true
}

func (o *outbox) pendingFrames() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.frames)
}

func (o *outbox) wake() {
	select {
	case o.frameReady <- struct{}{}:
	default:
	}
}
