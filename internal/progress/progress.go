// Package progress carries log lines and percent-complete events from a
// running job to whoever is listening.
package progress

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Reporter is the sink a job writes to. It knows nothing about connections.
type Reporter interface {
	Log(message string)
	Progress(percent int)
}

type EventType string

const (
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
)

// Event is one item on the wire:
// {"type":"log","message":"..."} or {"type":"progress","percent":42}.
type Event struct {
	Type    EventType
	Message string
	Percent int
}

func LogEvent(message string) Event { return Event{Type: EventLog, Message: message} }

func ProgressEvent(percent int) Event { return Event{Type: EventProgress, Percent: percent} }

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == EventProgress {
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Percent int       `json:"percent"`
		}{e.Type, e.Percent})
	}
	return json.Marshal(struct {
		Type    EventType `json:"type"`
		Message string    `json:"message"`
	}{e.Type, e.Message})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type    EventType `json:"type"`
		Message string    `json:"message"`
		Percent int       `json:"percent"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Event{Type: raw.Type, Message: raw.Message, Percent: raw.Percent}
	return nil
}

// Emit sends ev to r.
func Emit(r Reporter, ev Event) {
	if ev.Type == EventProgress {
		r.Progress(ev.Percent)
		return
	}
	r.Log(ev.Message)
}

// Multi fans every call out to each reporter in order.
type Multi []Reporter

func (m Multi) Log(message string) {
	for _, r := range m {
		if r != nil {
			r.Log(message)
		}
	}
}

func (m Multi) Progress(percent int) {
	for _, r := range m {
		if r != nil {
			r.Progress(percent)
		}
	}
}

// Discard drops everything.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Log(string)   {}
func (discard) Progress(int) {}

// SlogReporter writes events as structured log records.
type SlogReporter struct {
	logger *slog.Logger
}

func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

func (s *SlogReporter) Log(message string) {
	s.logger.Info("job log", "message", message)
}

func (s *SlogReporter) Progress(percent int) {
	s.logger.Debug("job progress", "percent", percent)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Log(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, LogEvent(message))
}

func (r *Recorder) Progress(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ProgressEvent(percent))
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Percents returns the progress values in the order they were reported.
func (r *Recorder) Percents() []int {
	var out []int
	for _, e := range r.Events() {
		if e.Type == EventProgress {
			out = append(out, e.Percent)
		}
	}
	return out
}

// Messages returns the log lines in the order they were reported.
func (r *Recorder) Messages() []string {
	var out []string
	for _, e := range r.Events() {
		if e.Type == EventLog {
			out = append(out, e.Message)
		}
	}
	return out
}
