package runner

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/netfilter/conn/internal/tracing"
)

// Session runs one batch of Threads concurrent workers over a private copy
// of the URL cycle.
type Session struct {
	opt Options
}

// NewSession returns a session template. Unset options get their defaults.
func NewSession(opt Options) *Session {
	opt.normalize()
	return &Session{opt: opt}
}

// Run executes session invocation index. The cycle copy is shuffled when
// configured, then rotated by index*Offset before any worker draws from it.
// Request failures are collected in the result; only a failure of the
// session itself, or a context cancelled before the workers start, is
// returned as an error.
func (s *Session) Run(ctx context.Context, index int) (res SessionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = SessionResult{}, &SessionError{Index: index, Value: r}
		}
	}()

	urls := s.opt.URLs.Clone()
	s.notify(index, StateCreated)

	if s.opt.Shuffle {
		urls.Shuffle(s.opt.sessionRand(index))
		s.notify(index, StateShuffled)
	}

	offset := index * s.opt.Offset
	urls.Rotate(offset)
	s.notify(index, StateRotated)

	if err := ctx.Err(); err != nil {
		return SessionResult{}, err
	}

	var span trace.Span
	if s.opt.Tracer != nil {
		ctx, span = tracing.StartSessionSpan(ctx, s.opt.Tracer, index, offset)
	}

	s.notify(index, StateRunning)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	res.Index = index
	wg.Add(s.opt.Threads)
	for i := 0; i < s.opt.Threads; i++ {
		go func() {
			defer wg.Done()
			w := &Worker{
				Cycle:     urls,
				Fetcher:   s.opt.Fetcher,
				Sleep:     s.opt.Sleep,
				DryRun:    s.opt.DryRun,
				Display:   s.opt.Display,
				Tracer:    s.opt.Tracer,
				Collector: s.opt.Collector,
			}
			n, werr := w.Run(ctx)
			if werr != nil {
				s.opt.Display.LogFailure(werr)
			}

			mu.Lock()
			defer mu.Unlock()
			res.Requests++
			if werr != nil {
				res.Errors = append(res.Errors, werr)
				return
			}
			res.Bytes += n
		}()
	}
	wg.Wait()

	if span != nil {
		tracing.EndSpan(span, nil,
			attribute.Int64("conn.session.bytes", res.Bytes),
			attribute.Int("conn.session.errors", len(res.Errors)),
		)
	}
	if s.opt.Collector != nil {
		s.opt.Collector.SessionCompleted()
	}
	s.notify(index, StateAggregated)

	return res, nil
}

func (s *Session) notify(index int, state State) {
	if s.opt.Observer != nil {
		s.opt.Observer(index, state)
	}
}
