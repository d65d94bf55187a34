// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so secrets such as the CoinGecko API key or the Postgres password can stay out of
// the file:
//
//	api:
//	  api_key: ${COINGECKO_API_KEY}
package config
