package runner

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/netfilter/conn/internal/cycle"
	"github.com/netfilter/conn/internal/metrics"
)

// Fetcher abstracts performing a single GET and reporting the body size.
// Implementations should return an error for failed requests.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (int64, error)
}

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(err error)
}

// Display receives per-request output. Implementations decide what quiet
// mode hides and must be safe for concurrent use.
type Display interface {
	FailureLogger
	ShowURL(url string)
}

// StateObserver is told about each session lifecycle transition.
type StateObserver func(index int, state State)

// Options configure sessions and the coordinator.
type Options struct {
	URLs      *cycle.Cycle       // base cycle with skip already applied (required)
	Processes int                // sessions running at once
	Threads   int                // workers per session
	Repeat    int                // total sessions (0 means Processes)
	Sleep     time.Duration      // pause before every request
	Shuffle   bool               // permute each session's cycle
	Seed      int64              // shuffle seed (0 picks one from the clock)
	Offset    int                // session k rotates its cycle by k*Offset
	DryRun    bool               // report URLs instead of fetching
	Fetcher   Fetcher            // request executor (required unless DryRun)
	Display   Display            // optional per-request output
	Collector *metrics.Collector // optional metrics sink
	Tracer    trace.Tracer       // optional; nil disables spans
	Observer  StateObserver      // optional lifecycle hook
	Logger    logrus.FieldLogger // optional coordinator log
}

func (o *Options) normalize() {
	if o.Processes <= 0 {
		o.Processes = 1
	}
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.Repeat <= 0 {
		o.Repeat = o.Processes
	}
	if o.Display == nil {
		o.Display = discardDisplay{}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// sessionRand returns the shuffle source for one session. A fixed seed makes
// every session's permutation reproducible.
func (o *Options) sessionRand(index int) *rand.Rand {
	seed := o.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + int64(index)))
}

type discardDisplay struct{}

func (discardDisplay) LogFailure(error) {}
func (discardDisplay) ShowURL(string)   {}
