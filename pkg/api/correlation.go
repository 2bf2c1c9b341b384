package api

// CorrelationTable maps external event names to queues of
// delivered-but-unconsumed payloads for one instance. An event may arrive
// before the orchestrator reaches the corresponding wait point; the payload
// then stays buffered until a wait consumes it.
//
// The table is a derived projection: it is rebuilt from history at the start
// of every replay pass, so it never needs to be persisted on its own.
// Payloads for the same event name are consumed in the order they were
// raised; distinct event names are independent.
type CorrelationTable struct {
	queues map[string][]any
}

// NewCorrelationTable builds the table from an instance's ordered history.
func NewCorrelationTable(history []HistoryEvent) *CorrelationTable {
	t := &CorrelationTable{queues: make(map[string][]any)}
	for _, ev := range history {
		if ev.Type == EventExternalRaised {
			t.queues[ev.EventName] = append(t.queues[ev.EventName], ev.Input)
		}
	}
	return t
}

// Consume removes and returns the oldest unconsumed payload for name.
func (t *CorrelationTable) Consume(name string) (any, bool) {
	q := t.queues[name]
	if len(q) == 0 {
		return nil, false
	}
	payload := q[0]
	if len(q) == 1 {
		delete(t.queues, name)
	} else {
		t.queues[name] = q[1:]
	}
	return payload, true
}

// Buffered returns the number of unconsumed payloads for name.
func (t *CorrelationTable) Buffered(name string) int {
	return len(t.queues[name])
}
