// Package client is a small REST client for the listing API. Identifiers in
// responses are decoded with the strict and lenient rules of package
// snowflake.
package client
