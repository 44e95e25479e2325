package runner

import (
	"github.com/hashicorp/go-multierror"
)

// SessionResult is the outcome of one session invocation.
type SessionResult struct {
	Index    int
	Requests int
	Bytes    int64
	Errors   []error
}

// Aggregate sums every SessionResult of a run.
type Aggregate struct {
	Sessions int
	Requests int
	Bytes    int64
	Errors   []error
}

// Add folds r into the aggregate.
func (a *Aggregate) Add(r SessionResult) {
	a.Sessions++
	a.Requests += r.Requests
	a.Bytes += r.Bytes
	a.Errors = append(a.Errors, r.Errors...)
}

// ErrorCount is the number of failed requests.
func (a Aggregate) ErrorCount() int {
	return len(a.Errors)
}

// Err folds every request error into one, or returns nil when none failed.
func (a Aggregate) Err() error {
	var merr *multierror.Error
	for _, err := range a.Errors {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}
