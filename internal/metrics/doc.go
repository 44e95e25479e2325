// Package metrics provides real-time metrics collection and aggregation for a load run.
//
// The central [Collector] type aggregates the outcome of every request issued by
// the workers:
//
//	collector := metrics.NewCollector()
//
//	collector.RequestStarted()
//	collector.RecordRequest(latency, bytes, err, &metrics.RequestMetadata{
//		Host:       "example.com",
//		StatusCode: "503",
//	})
//
//	stats := collector.Stats(elapsed)
//
// Latency percentiles come from an HDR histogram tracking 1µs to 60s. Failed
// requests are broken down by error class (see [ErrorClass]) and by HTTP status.
//
// An [Observer] registered with [Collector.AddObserver] sees every request as it
// is recorded; the Prometheus exporter uses this hook.
//
// The Collector is guarded by a single mutex and is safe to use from many goroutines.
package metrics
