package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_FreshSlotNotInFlight(t *testing.T) {
	var slot Slot[int]

	for i := 0; i < 3; i++ {
		v, status := slot.Poll()
		assert.Equal(t, NotInFlight, status)
		assert.Zero(t, v)
	}
	assert.False(t, slot.InFlight())
}

func TestSlot_DeliverThenPoll(t *testing.T) {
	var slot Slot[string]

	p := slot.Dispatch()
	assert.True(t, slot.InFlight())

	_, status := slot.Poll()
	assert.Equal(t, StillPending, status, "nothing delivered yet")

	p.Deliver("done")

	v, status := slot.Poll()
	require.Equal(t, Delivered, status)
	assert.Equal(t, "done", v)
	assert.False(t, slot.InFlight())

	for i := 0; i < 3; i++ {
		_, status = slot.Poll()
		assert.Equal(t, NotInFlight, status)
	}
}

func TestSlot_RedispatchOrphansEarlierProducer(t *testing.T) {
	t.Run("old delivery is not observable", func(t *testing.T) {
		var slot Slot[string]

		a := slot.Dispatch()
		b := slot.Dispatch()

		a.Deliver("A")

		_, status := slot.Poll()
		assert.Equal(t, StillPending, status)

		b.Deliver("B")

		v, status := slot.Poll()
		require.Equal(t, Delivered, status)
		assert.Equal(t, "B", v)
	})

	t.Run("both delivered before poll", func(t *testing.T) {
		var slot Slot[string]

		a := slot.Dispatch()
		b := slot.Dispatch()
		b.Deliver("B")
		a.Deliver("A")

		v, status := slot.Poll()
		require.Equal(t, Delivered, status)
		assert.Equal(t, "B", v)

		_, status = slot.Poll()
		assert.Equal(t, NotInFlight, status)
	})
}

func TestProducer_SecondDeliverDropped(t *testing.T) {
	var slot Slot[int]

	p := slot.Dispatch()
	p.Deliver(1)
	p.Deliver(2)

	v, status := slot.Poll()
	require.Equal(t, Delivered, status)
	assert.Equal(t, 1, v)

	_, status = slot.Poll()
	assert.Equal(t, NotInFlight, status)
}

func TestProducer_ZeroValueIsNoop(t *testing.T) {
	var p Producer[int]
	assert.NotPanics(t, func() { p.Deliver(1) })
}

func TestProducer_DeliverAfterSlotMovedOn(t *testing.T) {
	var slot Slot[int]

	old := slot.Dispatch()
	slot.Dispatch().Deliver(2)

	v, status := slot.Poll()
	require.Equal(t, Delivered, status)
	assert.Equal(t, 2, v)

	// Must not block even though nothing will ever read it.
	done := make(chan struct{})
	go func() {
		old.Deliver(1)
		old.Deliver(1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked on an orphaned channel")
	}

	_, status = slot.Poll()
	assert.Equal(t, NotInFlight, status)
}

func TestSlot_Go(t *testing.T) {
	var slot Slot[int]

	release := make(chan struct{})
	slot.Go(func() int {
		<-release
		return 42
	})

	_, status := slot.Poll()
	assert.Equal(t, StillPending, status)

	close(release)

	var got int
	require.Eventually(t, func() bool {
		v, status := slot.Poll()
		if status == Delivered {
			got = v
			return true
		}
		return false
	}, time.Second, time.Millisecond)
	assert.Equal(t, 42, got)
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{NotInFlight, "not_in_flight"},
		{StillPending, "still_pending"},
		{Delivered, "delivered"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}
