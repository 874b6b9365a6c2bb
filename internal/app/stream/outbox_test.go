package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxControlFIFO(t *testing.T) {
	o := newOutbox(4)

	require.True(t, o.enqueueControl([]byte("one")))
	require.True(t, o.enqueueControl([]byte("two")))
	require.True(t, o.enqueueControl([]byte("three")))

	assert.Equal(t, "one", string(<-o.send))
	assert.Equal(t, "two", string(<-o.send))
	assert.Equal(t, "three", string(<-o.send))
}

func TestOutboxControlOverflow(t *testing.T) {
	o := newOutbox(2)

	assert.True(t, o.enqueueControl([]byte("a")))
	assert.True(t, o.enqueueControl([]byte("b")))

	// A full FIFO lane never blocks the caller.
	assert.False(t, o.enqueueControl([]byte("c")))
}

func TestOutboxFrameCoalescing(t *testing.T) {
	o := newOutbox(1)

	assert.False(t, o.enqueueFrame("alice", []byte("f1")))
	assert.True(t, o.enqueueFrame("alice", []byte("f2")), "newer frame replaces the pending one")
	assert.True(t, o.enqueueFrame("alice", []byte("f3")))
	assert.Equal(t, 1, o.pendingFrames())

	payload, ok := o.popFrame()
	require.True(t, ok)
	assert.Equal(t, "f3", string(payload), "only the freshest frame is delivered")

	_, ok = o.popFrame()
	assert.False(t, ok)
}

func TestOutboxFramesPerSource(t *testing.T) {
	o := newOutbox(1)

	o.enqueueFrame("alice", []byte("a1"))
	o.enqueueFrame("bob", []byte("b1"))
	o.enqueueFrame("alice", []byte("a2"))
	o.enqueueFrame("carol", []byte("c1"))

	// One slot per source, drained oldest source first.
	assert.Equal(t, 3, o.pendingFrames())

	p1, _ := o.popFrame()
	p2, _ := o.popFrame()
	p3, _ := o.popFrame()
	assert.Equal(t, []string{"a2", "b1", "c1"}, []string{string(p1), string(p2), string(p3)})
}

func TestOutboxWakeSignal(t *testing.T) {
	o := newOutbox(1)

	o.enqueueFrame("alice", []byte("a1"))
	o.enqueueFrame("bob", []byte("b1"))

	// The wake channel holds at most one signal regardless of enqueues.
	<-o.frameReady
	select {
	case <-o.frameReady:
		t.Fatal("expected a single pending wake signal")
	default:
	}

	// popFrame re-arms the signal while frames remain pending.
	_, ok := o.popFrame()
	require.True(t, ok)
	select {
	case <-o.frameReady:
	default:
		t.Fatal("expected popFrame to re-arm the wake signal")
	}

	_, ok = o.popFrame()
	require.True(t, ok)
	_, ok = o.popFrame()
	assert.False(t, ok)
}
