// Package core contains the vote domain types, the handler contract, error
// envelopes and configuration shared by the webhook, client and store
// packages. Adapters depend on core; core does not depend on adapters.
package core
