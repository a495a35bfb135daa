// Package ratelimit tracks the API's rate limit windows per route bucket so
// the client can fail fast instead of sending requests that would be
// rejected with 429.
package ratelimit
