package cycle_test

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/netfilter/conn/internal/cycle"
)

func TestNewRejectsEmptyList(t *testing.T) {
	if _, err := cycle.New(nil, 0); !errors.Is(err, cycle.ErrNoURLs) {
		t.Fatalf("expected ErrNoURLs, got %v", err)
	}
	if _, err := cycle.New([]string{}, 3); !errors.Is(err, cycle.ErrNoURLs) {
		t.Fatalf("expected ErrNoURLs, got %v", err)
	}
}

func TestNewDoesNotAliasInput(t *testing.T) {
	in := []string{"a", "b", "c"}
	c, err := cycle.New(in, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	in[0] = "changed"
	if got := c.Next(); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
}

func TestSkipSelectsFirstURL(t *testing.T) {
	c, err := cycle.New([]string{"A", "B", "C"}, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.Next(); got != "B" {
		t.Fatalf("expected first URL B, got %q", got)
	}
}

func TestRotateYieldsEveryURLOnce(t *testing.T) {
	urls := []string{"u0", "u1", "u2", "u3", "u4"}
	for _, skip := range []int{0, 1, 4, 5, 7, 12, -1, -6} {
		c, err := cycle.New(urls, 0)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		c.Rotate(skip)

		start := ((skip % len(urls)) + len(urls)) % len(urls)
		seen := map[string]bool{}
		for i := 0; i < len(urls); i++ {
			got := c.Next()
			want := urls[(start+i)%len(urls)]
			if got != want {
				t.Fatalf("skip=%d draw %d: got %q, want %q", skip, i, got, want)
			}
			if seen[got] {
				t.Fatalf("skip=%d: %q yielded twice", skip, got)
			}
			seen[got] = true
		}
	}
}

func TestRotationsCompose(t *testing.T) {
	c, err := cycle.New([]string{"a", "b", "c", "d", "e"}, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Rotate(2)
	if got := c.Next(); got != "d" {
		t.Fatalf("expected d after skip 1 + rotate 2, got %q", got)
	}
}

func TestRotateRestartsIteration(t *testing.T) {
	c, _ := cycle.New([]string{"a", "b", "c"}, 0)
	c.Next()
	c.Next()
	c.Rotate(0)
	if got := c.Next(); got != "a" {
		t.Fatalf("expected iteration to restart at a, got %q", got)
	}
}

func TestNextWrapsAround(t *testing.T) {
	c, _ := cycle.New([]string{"x", "y"}, 0)
	want := []string{"x", "y", "x", "y", "x"}
	for i, w := range want {
		if got := c.Next(); got != w {
			t.Fatalf("draw %d: got %q, want %q", i, got, w)
		}
	}
}

func TestShufflePreservesMultiset(t *testing.T) {
	urls := []string{"a", "b", "b", "c", "d", "e", "f"}
	c, _ := cycle.New(urls, 0)
	c.Shuffle(rand.New(rand.NewSource(42)))

	got := c.URLs()
	sort.Strings(got)
	want := append([]string(nil), urls...)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length changed: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("multiset changed: got %v, want %v", got, want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c, _ := cycle.New([]string{"a", "b", "c"}, 0)
	clone := c.Clone()
	clone.Rotate(1)
	clone.Shuffle(rand.New(rand.NewSource(1)))

	if got := c.URLs(); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("original mutated by clone: %v", got)
	}
}

func TestConcurrentNextPartitionsSlots(t *testing.T) {
	urls := []string{"a", "b", "c", "d"}
	c, _ := cycle.New(urls, 0)

	const draws = 400
	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	wg.Add(draws)
	for i := 0; i < draws; i++ {
		go func() {
			defer wg.Done()
			u := c.Next()
			mu.Lock()
			counts[u]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, u := range urls {
		if counts[u] != draws/len(urls) {
			t.Fatalf("expected %d draws of %q, got %d (%v)", draws/len(urls), u, counts[u], counts)
		}
	}
}
