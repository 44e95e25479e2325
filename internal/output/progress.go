package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/netfilter/conn/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
	sessions  int
	requests  int
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
// sessions and requests are the planned totals shown next to the live counts.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer, sessions, requests int) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
		sessions:  sessions,
		requests:  requests,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and ends the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line() string {
	stats := p.collector.Stats(time.Since(p.start))
	return fmt.Sprintf("\rSessions: %d/%d | Requests: %d/%d | In flight: %d | Errors: %d | %.2f MB | %.2f mbps",
		stats.Sessions, p.sessions,
		stats.Total, p.requests,
		stats.InFlight,
		stats.Failures,
		metrics.Megabytes(stats.Bytes),
		stats.Mbps,
	)
}
