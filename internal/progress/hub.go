package progress

import (
	"log/slog"
	"sync"
)

const defaultSubscriberBuffer = 256

// Hub fans job events out to in-process subscribers. Each job keeps its
// history so a late subscriber first receives everything already emitted.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
	buffer int
	logger *slog.Logger
}

type topic struct {
	history []Event
	subs    map[chan Event]struct{}
	closed  bool
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{topics: make(map[string]*topic), buffer: defaultSubscriberBuffer, logger: logger}
}

func (h *Hub) topicLocked(jobID string) *topic {
	t, ok := h.topics[jobID]
	if !ok {
		t = &topic{subs: make(map[chan Event]struct{})}
		h.topics[jobID] = t
	}
	return t
}

// Publish records ev for jobID and delivers it to current subscribers. A
// subscriber whose buffer is full misses the event rather than blocking the job.
func (h *Hub) Publish(jobID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topicLocked(jobID)
	if t.closed {
		return
	}
	t.history = append(t.history, ev)
	for ch := range t.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropping progress event for slow subscriber", "job_id", jobID, "type", ev.Type)
		}
	}
}

// Subscribe returns a channel replaying the job's history followed by live
// events. The channel is closed when the job is closed or cancel is called.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topicLocked(jobID)

	ch := make(chan Event, len(t.history)+h.buffer)
	for _, ev := range t.history {
		ch <- ev
	}
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	t.subs[ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := t.subs[ch]; ok {
				delete(t.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close ends the job's stream. History stays available until Forget.
func (h *Hub) Close(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topicLocked(jobID)
	if t.closed {
		return
	}
	t.closed = true
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
}

// Forget drops the job's history and subscribers.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[jobID]; ok {
		for ch := range t.subs {
			delete(t.subs, ch)
			close(ch)
		}
		delete(h.topics, jobID)
	}
}

// History returns a copy of the events recorded for jobID.
func (h *Hub) History(jobID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[jobID]
	if !ok {
		return nil
	}
	out := make([]Event, len(t.history))
	copy(out, t.history)
	return out
}

// Reporter returns a sink publishing to jobID.
func (h *Hub) Reporter(jobID string) Reporter {
	return hubReporter{hub: h, jobID: jobID}
}

type hubReporter struct {
	hub   *Hub
	jobID string
}

func (r hubReporter) Log(message string)   { r.hub.Publish(r.jobID, LogEvent(message)) }
func (r hubReporter) Progress(percent int) { r.hub.Publish(r.jobID, ProgressEvent(percent)) }
