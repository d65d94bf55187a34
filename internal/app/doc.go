// Package app wires configuration into a running ingester and exposes the
// operations the CLI and the status server use.
package app
