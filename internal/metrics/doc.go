// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Outbound request attempts by endpoint route and outcome
//   - Rate limiter waits
//   - Store chunk writes by entity family and result
//   - Scheduled job runs, durations and items processed
package metrics
