// Package httpclient provides the HTTP client used by load workers.
//
// The client is tuned for load generation:
//   - a single per-request timeout covering connect, TLS handshake and body read
//   - generous idle connection reuse
//   - TLS certificate verification disabled, so self-signed and staging
//     endpoints can be exercised without errors
//
// # Fetching
//
// A [Fetcher] issues one GET per call and reports the number of body bytes read:
//
//	client := httpclient.NewClient(100*time.Second, 32)
//	fetcher := httpclient.NewFetcher(client)
//	n, err := fetcher.Fetch(ctx, "https://example.com/")
//
// Responses with a status of 400 or above are reported as [HTTPError].
//
// # Tracing
//
// [WithTracePropagation] injects W3C trace context headers using the
// propagator installed by [github.com/netfilter/conn/internal/tracing].
package httpclient
