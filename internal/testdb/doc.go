// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database. Without a configured URL the tests are skipped
// locally and fail in CI.
package testdb
