// Package transform maps raw CoinGecko payloads into model entities and
// computes the metrics the API does not report.
//
// Every mapper is a pure function of its payload and the run time. A record
// that cannot be mapped returns a *TransformError; callers log it and move on
// to the next record.
package transform
