package fmsolvers

import (
	"github.com/emirpasic/gods/queues/circularbuffer"
)

// HistoryEntry is one past model evaluation.
type HistoryEntry struct {
	T        float64 // timestamp of the evaluation
	Lambda   float64 // λ(T)
	Velocity *Tensor
	Denoised *Tensor // clean-data prediction x + T·Velocity
}

// History keeps the most recent model evaluations of a run, oldest first.
// It holds at most as many entries as the configured order.
type History struct {
	buf      *circularbuffer.Queue
	capacity int
}

// NewHistory returns an empty history bounded to capacity entries.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: circularbuffer.New(capacity), capacity: capacity}
}

// Push records the velocity evaluated at (sample, t), evicting the oldest entry when full.
func (h *History) Push(t float64, velocity, sample *Tensor) HistoryEntry {
	e := HistoryEntry{T: t, Lambda: lambda(t), Velocity: velocity, Denoised: denoise(sample, t, velocity)}
	h.buf.Enqueue(e)
	return e
}

// Entries returns the stored entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	vals := h.buf.Values()
	out := make([]HistoryEntry, len(vals))
	for i, v := range vals {
		out[i] = v.(HistoryEntry)
	}
	return out
}

// Latest returns the most recent entry.
func (h *History) Latest() (HistoryEntry, bool) {
	vals := h.buf.Values()
	if len(vals) == 0 {
		return HistoryEntry{}, false
	}
	return vals[len(vals)-1].(HistoryEntry), true
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return h.buf.Size()
}

// Cap returns the maximum number of entries.
func (h *History) Cap() int {
	return h.capacity
}

// Clear drops every entry.
func (h *History) Clear() {
	h.buf.Clear()
}
