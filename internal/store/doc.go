// Package store is the persistence gateway in front of a partition/sort-keyed
// record table.
//
// Items are written in fixed-size chunks, one batched write per chunk. A
// chunk either succeeds as a whole or is counted as failed; the gateway never
// retries or rolls back. Each item's expiry is computed from its retention
// class immediately before the write.
//
// Key scheme:
//
//	pk = "<ENTITY-CLASS>#<id>"       e.g. "EXCHANGE#6f1c...", "QUICK_PRICE#BTC"
//	sk = "<RECORD-KIND>#<timestamp>" e.g. "STATS#2024-01-15T03:00:00.000000Z"
//
// The record kind of an item is its sort key minus the trailing timestamp,
// so platform records ("PLATFORM#ethereum#...") form one kind per chain.
package store
