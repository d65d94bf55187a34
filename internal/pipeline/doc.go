// Package pipeline composes fetching, transforming and persisting into the
// two sync modes: a full sync of exchanges and tokens, and a quick price
// refresh keyed by symbol.
//
// Both modes probe the API first and fail with ErrAPIUnreachable before any
// fetch when the probe fails. A record that cannot be fetched or transformed
// is logged, counted and skipped. A failed list or markets page fails the run.
package pipeline
