// Package mail renders embedded HTML templates and hands the result to a
// Sender. SESSender delivers through Amazon SES; LogSender only logs and
// is meant for development.
package mail
