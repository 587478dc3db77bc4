package notify

import "sync"

// Kind is the type of a recorded notification.
type Kind string

const (
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindRemove  Kind = "remove"
)

// Record is one call made on a Recorder.
type Record struct {
	Kind    Kind     `json:"kind"`
	Ticket  TicketID `json:"ticket,omitempty"`
	Content Content  `json:"content"`
	Options Options  `json:"options"`
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	open    map[TicketID]struct{}
	order   []TicketID
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{open: make(map[TicketID]struct{})}
}

func (r *Recorder) Loading(c Content) TicketID {
	id := NewTicketID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[id] = struct{}{}
	r.order = append(r.order, id)
	r.records = append(r.records, Record{Kind: KindLoading, Ticket: id, Content: c})
	return id
}

func (r *Recorder) Success(c Content, opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Kind: KindSuccess, Content: c, Options: opts})
}

func (r *Recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Kind: KindError, Content: Content{Message: message}})
}

func (r *Recorder) Remove(id TicketID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, id)
	r.records = append(r.records, Record{Kind: KindRemove, Ticket: id})
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Open returns the tickets that were opened but not removed, oldest first.
func (r *Recorder) Open() []TicketID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []TicketID
	for _, id := range r.order {
		if _, ok := r.open[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns how many notifications of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent record of the given kind.
func (r *Recorder) Last(kind Kind) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Kind == kind {
			return r.records[i], true
		}
	}
	return Record{}, false
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
	r.order = nil
	r.open = make(map[TicketID]struct{})
}
