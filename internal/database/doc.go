// Package database implements store.Table on PostgreSQL.
//
// Records live in one table keyed by (pk, sk). Non-key attributes are kept in
// a jsonb column, with decimals written as JSON numbers so precision survives.
// PostgreSQL has no native TTL: reads hide expired rows and Sweep deletes them.
package database
