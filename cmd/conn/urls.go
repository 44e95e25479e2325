package main

import (
	"fmt"

	"github.com/netfilter/conn/internal/config"
	"github.com/netfilter/conn/internal/feeder"
)

// loadURLs returns the literal input URL, or the URLs read from the input
// file when -f is set.
func loadURLs(cfg *config.Config) ([]string, error) {
	if !cfg.InputIsFile {
		return []string{cfg.Input}, nil
	}
	opts, err := cfg.FeederOptions()
	if err != nil {
		return nil, err
	}
	urls, err := feeder.Load(cfg.Input, opts)
	if err != nil {
		return nil, fmt.Errorf("load urls: %w", err)
	}
	return urls, nil
}
