// Package api exposes the account services over HTTP. It decodes and
// validates requests, calls the services and maps their errors to status
// codes and safe messages (see errors.go).
package api
