package runner

import "fmt"

// ConnectError is a failed request: sleep interrupted, connection or TLS
// failure, read error, or an HTTP status of 400 and above.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// UnexpectedError is a panic recovered inside a worker.
type UnexpectedError struct {
	URL   string
	Value interface{}
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected failure fetching %s: %v", e.URL, e.Value)
}

func (e *UnexpectedError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// SessionError is a session that could not finish its own bookkeeping.
// It aborts the whole run.
type SessionError struct {
	Index int
	Value interface{}
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %d failed: %v", e.Index, e.Value)
}

func (e *SessionError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
