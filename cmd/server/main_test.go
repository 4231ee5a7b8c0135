package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseFlags(t *testing.T) {
	t.Run("defaults serve", func(t *testing.T) {
		opts, err := parseFlags(nil, env(nil), io.Discard)
		require.NoError(t, err)
		assert.Equal(t, options{}, opts)
	})

	t.Run("migrate", func(t *testing.T) {
		opts, err := parseFlags([]string{"-migrate", "up"}, env(nil), io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "up", opts.migrate)
	})

	t.Run("create superuser reads password from env", func(t *testing.T) {
		opts, err := parseFlags(
			[]string{"-create-superuser", "admin", "-superuser-email", "admin@example.com"},
			env(map[string]string{superuserPasswordEnv: "s3cret-password"}),
			io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "admin", opts.superuser)
		assert.Equal(t, "admin@example.com", opts.superuserEmail)
		assert.Equal(t, "s3cret-password", opts.superuserPassword)
	})

	t.Run("create superuser requires email and password", func(t *testing.T) {
		_, err := parseFlags([]string{"-create-superuser", "admin"},
			env(map[string]string{superuserPasswordEnv: "x"}), io.Discard)
		assert.Error(t, err)

		_, err = parseFlags([]string{"-create-superuser", "admin", "-superuser-email", "admin@example.com"},
			env(nil), io.Discard)
		assert.Error(t, err)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseFlags([]string{"-nope"}, env(nil), io.Discard)
		assert.Error(t, err)
	})
}
