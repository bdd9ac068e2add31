package calibration

import (
	"sync"

	"github.com/englishfox90/pfrsentinel/internal/logger"
)

// Sink receives completed records. Publish must not block the capture
// cycle; implementations decide what to do under backpressure.
type Sink interface {
	Publish(rec *Record)
}

// Dispatcher decouples record persistence from the capture cycle with a
// bounded queue and a single writer goroutine. When the queue is full
// the newest record is dropped: losing one observation is cheaper than
// stalling a capture.
type Dispatcher struct {
	repo    Repository
	logger  logger.Logger
	queue   chan *Record
	wg      sync.WaitGroup
	mu      sync.Mutex
	dropped uint64
	closed  bool
}

// NewDispatcher starts the writer goroutine. queueSize <= 0 gets a
// small default.
func NewDispatcher(repo Repository, queueSize int, log logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 8
	}
	if log == nil {
		log = logger.Default()
	}

	d := &Dispatcher{
		repo:   repo,
		logger: log,
		queue:  make(chan *Record, queueSize),
	}
	d.wg.Add(1)
	go d.run()

	return d
}

// Publish enqueues a record without blocking. Records arriving after
// Close or into a full queue are counted and dropped.
func (d *Dispatcher) Publish(rec *Record) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	var n uint64
	select {
	case d.queue <- rec:
	default:
		d.dropped++
		n = d.dropped
	}
	d.mu.Unlock()

	if n > 0 {
		d.logger.Warn().
			Uint64("dropped_total", n).
			Msg("Calibration queue full, dropping record")
	}
}

// Dropped returns the count of records lost to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dropped
}

// Close drains the queue and stops the writer. The repository is not
// closed; the caller owns it.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for rec := range d.queue {
		if err := d.repo.Record(rec); err != nil {
			d.logger.Error().Err(err).Msg("Failed to persist calibration record")
		}
	}
}
