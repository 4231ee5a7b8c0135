// Package domain contains the core business entities of the accounts service:
// accounts with their time-bounded activation codes, and friend invites.
//
// Entities validate themselves and know nothing about persistence or transport.
package domain
