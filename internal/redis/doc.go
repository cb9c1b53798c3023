// Package redis implements the persistence bridge over a Redis key-value namespace.
//
// The durable state lives under two keys: a JSON array of sessions and a
// JSON object mapping domains to their active session ids. A circuit breaker
// and a metrics hook are installed on every client.
package redis
