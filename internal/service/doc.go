// Package service contains the account use cases. It orchestrates the
// repositories defined in internal/store and the task queue to implement
// registration, activation, authentication, profile management and friend
// invites.
//
// Services receive their dependencies through constructor injection and never
// depend on a concrete store implementation. Multi-step operations run inside a
// store.Transactor so they can be exercised with in-memory mocks.
//
// Error handling:
//   - Expected conditions are returned as the sentinels in errors.go
//     (ErrAccountNotFound, ErrActivationExpired, ErrForbidden, ...).
//   - Store duplicates and domain validation errors are wrapped in
//     *ServiceError and still match their cause with errors.Is.
//   - The API layer maps both to HTTP status codes.
//
// Side effects that must only be visible after a commit, such as enqueueing the
// activation email, are AccountCreatedHooks run after the creating
// transaction returns.
package service
