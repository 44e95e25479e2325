// Package runner provides the load generation engine for conn.
//
// A run is made of three layers:
//   - [Worker] draws one URL from a cycle, sleeps, fetches it and reports the body size
//   - [Session] clones the base cycle, shuffles and rotates it, then runs Threads workers concurrently
//   - [Coordinator] runs Repeat sessions with at most Processes at a time and folds the results
//
// # Basic Usage
//
//	urls, _ := cycle.New([]string{"https://example.com/a", "https://example.com/b"}, 0)
//	coord := runner.NewCoordinator(runner.Options{
//		URLs:      urls,
//		Processes: 4,
//		Threads:   10,
//		Fetcher:   httpclient.NewFetcher(nil),
//	})
//	agg, err := coord.Execute(ctx)
//
// # Offsets
//
// Session k rotates its private cycle by k*Offset positions, after the
// optional shuffle. The base cycle already carries the initial skip, so
// session k starts at (skip + k*Offset) mod len(urls) when nothing is shuffled.
//
// # Error Handling
//
// A failing request never aborts its siblings. It is wrapped as a
// [ConnectError] (or [UnexpectedError] for a recovered panic), passed to the
// [Display], and collected in the [SessionResult]:
//
//	var connErr *runner.ConnectError
//	if errors.As(err, &connErr) {
//		fmt.Printf("%s failed: %v\n", connErr.URL, connErr.Err)
//	}
//
// A [SessionError] or a cancelled context aborts the whole run.
package runner
