package router

import "github.com/calldeck/calldeck/internal/model"

// pendingBuffer parks interactions whose call record has not arrived yet.
// Each call gets a bounded FIFO slot; when a slot is full the oldest entry is
// dropped so a call that never materializes cannot grow memory without bound.
//
// Not safe for concurrent use: the Router serializes access under its own
// lock, since Stats() reads the buffer from other goroutines.
type pendingBuffer struct {
	perCall map[string][]model.Interaction
	limit   int
	dropped int64
}

func newPendingBuffer(limit int) *pendingBuffer {
	if limit < 1 {
		limit = 1
	}
	return &pendingBuffer{
		perCall: make(map[string][]model.Interaction),
		limit:   limit,
	}
}

// Add parks an interaction, dropping the oldest entry for the call if the
// slot is at capacity.
func (b *pendingBuffer) Add(in model.Interaction) {
	list := b.perCall[in.CallID]
	if len(list) >= b.limit {
		copy(list, list[1:])
		list = list[:len(list)-1]
		b.dropped++
	}
	b.perCall[in.CallID] = append(list, in)
}

// Drain removes and returns the parked interactions for a call in arrival
// order.
func (b *pendingBuffer) Drain(callID string) []model.Interaction {
	list, ok := b.perCall[callID]
	if !ok {
		return nil
	}
	delete(b.perCall, callID)
	return list
}

// Len returns the total number of parked interactions across all calls.
func (b *pendingBuffer) Len() int {
	total := 0
	for _, list := range b.perCall {
		total += len(list)
	}
	return total
}

// Dropped returns the count of interactions discarded due to capacity.
func (b *pendingBuffer) Dropped() int64 {
	return b.dropped
}
