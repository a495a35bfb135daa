// Package sqlstore keeps a ledger of received votes in SQL through bun and
// go-repository-bun. Schemas for postgres and sqlite ship as embedded
// migrations.
package sqlstore
