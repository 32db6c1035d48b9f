package models

// LoadStats counts what happened to each source during a load.
type LoadStats struct {
	Records    map[Process]int
	Malformed  map[Process]int
	Irrelevant map[Process]int
	// OutOfWindow counts classified records dropped by the time window.
	OutOfWindow map[Process]int
	Events      map[EventKind]int
}

// NewLoadStats returns zeroed counters.
func NewLoadStats() LoadStats {
	return LoadStats{
		Records:     make(map[Process]int),
		Malformed:   make(map[Process]int),
		Irrelevant:  make(map[Process]int),
		OutOfWindow: make(map[Process]int),
		Events:      make(map[EventKind]int),
	}
}

// TotalEvents sums stored events across kinds.
func (s LoadStats) TotalEvents() int {
	total := 0
	for _, n := range s.Events {
		total += n
	}
	return total
}
