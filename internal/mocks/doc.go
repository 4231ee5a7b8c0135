// Package mocks provides shared in-memory implementations of the store,
// transaction, queue and auth interfaces for service and API tests.
//
// The stores mirror the behavior of the Postgres implementations that tests
// rely on: uniqueness errors, not-found sentinels, password hashing (with
// HashPrefix instead of bcrypt) and the reset of CodeExpiry on every save.
//
//	accounts := mocks.NewMockAccountStore()
//	accounts.Now = func() time.Time { return fixed }
//	svc, _ := service.NewAccountService(accounts, &mocks.MockTransactor{},
//	    &mocks.MockPasswordVerifier{}, logger)
package mocks
