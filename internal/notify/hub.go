package notify

import "sync"

// Event is one job status update as published by the worker on the
// report_job_status channel.
type Event struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	StatusDisplay   string `json:"status_display"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ResultReference string `json:"result_reference,omitempty"`
}

// Hub fans events out to per-job subscribers inside the api process. A slow
// subscriber never blocks publishing; events it cannot keep up with are
// dropped, which is safe because the poll endpoint always has the latest
// state.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers interest in one job's events. The returned cancel
// function is idempotent and closes the channel.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	set, ok := h.subs[jobID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[jobID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[jobID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, jobID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its job.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions for a job.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[jobID])
}
