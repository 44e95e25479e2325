package main

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/netfilter/conn/internal/metrics"
	"github.com/netfilter/conn/internal/runner"
)

// logDisplay prints dry-run URLs to out and logs failures. Quiet hides URLs
// and connect errors; unexpected errors are always logged.
type logDisplay struct {
	mu    sync.Mutex
	out   io.Writer
	log   logrus.FieldLogger
	quiet bool
}

func newLogDisplay(out io.Writer, log logrus.FieldLogger, quiet bool) *logDisplay {
	return &logDisplay{out: out, log: log, quiet: quiet}
}

func (d *logDisplay) ShowURL(url string) {
	if d.quiet {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, url)
}

func (d *logDisplay) LogFailure(err error) {
	if err == nil {
		return
	}

	var unexpected *runner.UnexpectedError
	if errors.As(err, &unexpected) {
		d.log.WithField("url", unexpected.URL).Errorf("unexpected error: %v", unexpected.Value)
		return
	}
	if d.quiet {
		return
	}

	var connErr *runner.ConnectError
	if errors.As(err, &connErr) {
		d.log.WithFields(logrus.Fields{
			"url":   connErr.URL,
			"class": metrics.ErrorClass(connErr.Err),
		}).Warn(connErr.Err)
		return
	}
	d.log.WithError(err).Warn("request failed")
}
