package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOriginResolver(t *testing.T) {
	t.Parallel()

	r := &OriginResolver{
		Origins: []string{
			"https://app.push.org",
			"https://staging.push.org:8443",
			"https://partner.example",
		},
		RPIDs: []string{"app.push.org", "staging.push.org"},
	}

	t.Run("allowed origin resolves to its host", func(t *testing.T) {
		rpID, canonical, err := r.Resolve("https://app.push.org")
		require.NoError(t, err)
		require.Equal(t, "app.push.org", rpID)
		require.Equal(t, "https://app.push.org", canonical)
	})

	t.Run("port is stripped from the rp id", func(t *testing.T) {
		rpID, _, err := r.Resolve("https://staging.push.org:8443")
		require.NoError(t, err)
		require.Equal(t, "staging.push.org", rpID)
	})

	t.Run("host comparison is case-insensitive", func(t *testing.T) {
		_, canonical, err := r.Resolve("https://APP.push.org")
		require.NoError(t, err)
		require.Equal(t, "https://app.push.org", canonical)
	})

	t.Run("allowed origin with unlisted rp id fails closed", func(t *testing.T) {
		_, _, err := r.Resolve("https://partner.example")
		require.ErrorIs(t, err, ErrInvalidOrigin)
	})

	t.Run("unknown origin fails closed", func(t *testing.T) {
		_, _, err := r.Resolve("https://evil.example")
		require.ErrorIs(t, err, ErrInvalidOrigin)
	})

	t.Run("subdomain of an allowed origin is not allowed", func(t *testing.T) {
		_, _, err := r.Resolve("https://sub.app.push.org")
		require.ErrorIs(t, err, ErrInvalidOrigin)
	})

	t.Run("scheme must match", func(t *testing.T) {
		_, _, err := r.Resolve("http://app.push.org")
		require.ErrorIs(t, err, ErrInvalidOrigin)
	})

	t.Run("empty origin is refused", func(t *testing.T) {
		_, _, err := r.Resolve("")
		require.ErrorIs(t, err, ErrInvalidOrigin)
	})
}
