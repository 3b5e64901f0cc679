package engine

import "container/heap"

// fel is the Future Event List: a priority queue ordered strictly by
// (ExecutionTime, SchedulingSequence). There is no event-type-priority
// tier — two events scheduled for the same instant dispatch in the
// order they were scheduled, full stop.
type fel struct {
	entries []felEntry
}

type felEntry struct {
	event Event
	seq   uint64
}

func newFEL() *fel {
	f := &fel{entries: make([]felEntry, 0)}
	heap.Init(f)
	return f
}

func (f *fel) Len() int { return len(f.entries) }

func (f *fel) Less(i, j int) bool {
	ei, ej := f.entries[i], f.entries[j]
	if ei.event.ExecutionTime() != ej.event.ExecutionTime() {
		return ei.event.ExecutionTime() < ej.event.ExecutionTime()
	}
	return ei.seq < ej.seq
}

func (f *fel) Swap(i, j int) { f.entries[i], f.entries[j] = f.entries[j], f.entries[i] }

func (f *fel) Push(x any) { f.entries = append(f.entries, x.(felEntry)) }

func (f *fel) Pop() any {
	old := f.entries
	n := len(old)
	item := old[n-1]
	f.entries = old[:n-1]
	return item
}

// schedule pushes an entry and returns nothing; the caller has already
// assigned the event its ExecutionTime and sequence number.
func (f *fel) schedule(e Event, seq uint64) {
	heap.Push(f, felEntry{event: e, seq: seq})
}

// popNext removes and returns the lowest-priority event, or nil if empty.
func (f *fel) popNext() Event {
	if f.Len() == 0 {
		return nil
	}
	return heap.Pop(f).(felEntry).event
}
