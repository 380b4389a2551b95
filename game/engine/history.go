package engine

// HistoryEntry is one committed (position, direction) pair
type HistoryEntry struct {
	Position  Position `json:"position"`
	Direction int      `json:"direction"`
}

// History is a fixed-capacity ring of committed states, newest last
type History struct {
	entries [HistorySize]HistoryEntry
	next    int
}

// Reset fills every slot with e
func (h *History) Reset(e HistoryEntry) {
	for i := range h.entries {
		h.entries[i] = e
	}
	h.next = 0
}

// Push appends e, evicting the oldest entry
func (h *History) Push(e HistoryEntry) {
	h.entries[h.next] = e
	h.next = (h.next + 1) % HistorySize
}

// Back returns the n-th most recent entry, 0 being the latest.
// n is clamped to the ring.
func (h *History) Back(n int) HistoryEntry {
	if n < 0 {
		n = 0
	}
	if n >= HistorySize {
		n = HistorySize - 1
	}
	idx := (h.next - 1 - n + 2*HistorySize) % HistorySize
	return h.entries[idx]
}

// Entries returns the ring contents, oldest first
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, 0, HistorySize)
	for i := 0; i < HistorySize; i++ {
		out = append(out, h.entries[(h.next+i)%HistorySize])
	}
	return out
}

// Load replaces the ring with entries, oldest first. Short input is padded
// with its first entry.
func (h *History) Load(entries []HistoryEntry) {
	if len(entries) == 0 {
		return
	}
	if len(entries) > HistorySize {
		entries = entries[len(entries)-HistorySize:]
	}
	pad := HistorySize - len(entries)
	for i := 0; i < pad; i++ {
		h.entries[i] = entries[0]
	}
	copy(h.entries[pad:], entries)
	h.next = 0
}
