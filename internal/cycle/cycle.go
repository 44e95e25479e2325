// Package cycle provides the endless round-robin URL sequence consumed by load workers.
package cycle

import (
	"errors"
	"math/rand"
	"sync"
)

// ErrNoURLs is returned when a cycle is built from an empty list.
var ErrNoURLs = errors.New("url list is empty")

// Cycle yields URLs in round-robin order, forever.
// It is safe for concurrent use; concurrent Next calls never return the same slot twice.
type Cycle struct {
	mu   sync.Mutex
	urls []string
	pos  int
}

// New copies urls into a cycle whose head is skip positions forward.
func New(urls []string, skip int) (*Cycle, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	c := &Cycle{urls: append([]string(nil), urls...)}
	c.Rotate(skip)
	return c, nil
}

// Rotate moves the head offset positions forward (mod Len) and restarts
// iteration from the new head. Rotations compose.
func (c *Cycle) Rotate(offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.urls)
	position := ((offset % n) + n) % n
	if position != 0 {
		rotated := make([]string, 0, n)
		rotated = append(rotated, c.urls[position:]...)
		rotated = append(rotated, c.urls[:position]...)
		c.urls = rotated
	}
	c.pos = 0
}

// Shuffle permutes the list in place and restarts iteration from the head.
func (c *Cycle) Shuffle(rnd *rand.Rand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	swap := func(i, j int) { c.urls[i], c.urls[j] = c.urls[j], c.urls[i] }
	if rnd == nil {
		rand.Shuffle(len(c.urls), swap)
	} else {
		rnd.Shuffle(len(c.urls), swap)
	}
	c.pos = 0
}

// Next returns the URL at the cursor and advances it, wrapping at the end.
func (c *Cycle) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := c.urls[c.pos]
	c.pos = (c.pos + 1) % len(c.urls)
	return url
}

// Clone returns an independent cycle with the same order, positioned at the head.
func (c *Cycle) Clone() *Cycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Cycle{urls: append([]string(nil), c.urls...)}
}

// URLs returns a copy of the list in its current order.
func (c *Cycle) URLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.urls...)
}

// Len returns the number of distinct URLs in the cycle.
func (c *Cycle) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}
