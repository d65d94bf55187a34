// Package model defines the entities produced by the transform stage and
// persisted by the repository layer.
//
// Conventions:
//   - Money, ratios and supplies: shopspring decimal, never float64
//   - Absent values: decimal.NullDecimal with Valid=false, or a nil pointer
//   - Timestamps: time.Time in UTC, one per ingestion run
//   - IDs: uuid.UUID; exchanges and tokens are name-based over the CoinGecko id,
//     snapshots are random
package model
