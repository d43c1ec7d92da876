package narrative

import (
	"time"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
)

// eventLog is an append-only sequence of entries. Insertion order is display
// order.
type eventLog struct {
	entries []v1alpha1.LogEntry
}

func (l *eventLog) append(ts time.Time, message string) {
	l.entries = append(l.entries, v1alpha1.NewLogEntry(ts, message))
}

// restart drops every entry and starts over from a single boot entry.
func (l *eventLog) restart(ts time.Time, message string) {
	l.entries = []v1alpha1.LogEntry{v1alpha1.NewLogEntry(ts, message)}
}

func (l *eventLog) size() int {
	return len(l.entries)
}

// list returns the entries in a fresh slice.
func (l *eventLog) list() []v1alpha1.LogEntry {
	out := make([]v1alpha1.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
