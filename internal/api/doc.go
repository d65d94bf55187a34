// Package api provides the CoinGecko REST client.
//
// REST endpoints:
//   - Public: https://api.coingecko.com/api/v3
//   - Pro:    https://pro-api.coingecko.com/api/v3
//
// Every attempt passes through the shared rate limiter before it is sent.
// Failed attempts are classified (rate limited, timeout, transport, other
// status) and retried until the attempt budget is spent, at which point the
// request fails with a *FetchExhaustedError.
package api
