// Package database resolves connection descriptors, manages the Bun
// connection pool, hands out per-call sessions and applies versioned
// schema migrations.
package database
