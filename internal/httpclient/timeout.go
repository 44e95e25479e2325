package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ReadTimeoutError is returned when a response body stalls for longer than
// the client timeout between two reads.
type ReadTimeoutError struct {
	Idle time.Duration
}

func (e *ReadTimeoutError) Error() string {
	return fmt.Sprintf("read timeout: no body data for %s", e.Idle)
}

// Timeout makes the error a timeout net.Error.
func (e *ReadTimeoutError) Timeout() bool   { return true }
func (e *ReadTimeoutError) Temporary() bool { return true }

// readTimeoutTransport arms an idle timer on every response body. The timer
// restarts after each read that returns data.
type readTimeoutTransport struct {
	base *http.Transport
	idle time.Duration
}

func (t *readTimeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancelCause(req.Context())
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel(nil)
		return nil, err
	}
	timeoutErr := &ReadTimeoutError{Idle: t.idle}
	resp.Body = &idleTimeoutBody{
		body:   resp.Body,
		ctx:    ctx,
		cancel: cancel,
		idle:   t.idle,
		err:    timeoutErr,
		timer:  time.AfterFunc(t.idle, func() { cancel(timeoutErr) }),
	}
	return resp, nil
}

func (t *readTimeoutTransport) CloseIdleConnections() {
	t.base.CloseIdleConnections()
}

type idleTimeoutBody struct {
	body   io.ReadCloser
	ctx    context.Context
	cancel context.CancelCauseFunc
	idle   time.Duration
	err    *ReadTimeoutError
	timer  *time.Timer
	once   sync.Once
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 {
		b.timer.Reset(b.idle)
	}
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(context.Cause(b.ctx), b.err) {
		return n, b.err
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	err := b.body.Close()
	b.once.Do(func() {
		b.timer.Stop()
		b.cancel(nil)
	})
	return err
}
