// Package store defines the persistence contracts for accounts, friend
// invites and queued tasks, along with the sentinel errors every
// implementation maps its driver failures onto. Concrete implementations
// live in internal/platform/postgres.
package store
