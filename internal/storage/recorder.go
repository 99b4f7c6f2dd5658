package storage

import "poolEngine/internal/model"

// Recorder buffers notifications emitted by pools and assigns them a
// monotonic sequence. The simulator drains it into a Storage in batches.
type Recorder struct {
	seq     uint64
	pending []model.Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one notification, stamping its sequence number.
func (r *Recorder) Record(n model.Notification) {
	r.seq++
	n.Seq = r.seq
	r.pending = append(r.pending, n)
}

// Drain returns the buffered notifications and resets the buffer. The
// sequence counter keeps climbing across drains.
func (r *Recorder) Drain() []model.Notification {
	out := r.pending
	r.pending = nil
	return out
}

// Pending returns the number of buffered notifications.
func (r *Recorder) Pending() int { return len(r.pending) }

// Seq returns the last assigned sequence number.
func (r *Recorder) Seq() uint64 { return r.seq }
