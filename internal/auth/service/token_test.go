package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// newFileTestStore backs the store with a real file so concurrent goroutines
// share one database. The in-memory DSN is per connection.
func newFileTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.Join(t.TempDir(), "test.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := &TokenService{Store: newTestStore(t)}

	token, err := svc.Create(ctx, "https://app.example/profile")
	require.NoError(t, err)
	require.NotEmpty(t, token.ID)
	require.Equal(t, domain.TokenStatusPending, token.Status)

	// Pending tokens are not redeemable.
	_, err = svc.Redeem(ctx, token.ID)
	require.ErrorIs(t, err, ErrTokenUnauthorized)

	require.NoError(t, svc.Activate(ctx, token.ID, "session-jwt"))

	payload, err := svc.Redeem(ctx, token.ID)
	require.NoError(t, err)
	require.Equal(t, "session-jwt", payload)

	// Second redemption is refused the same way an unknown id is.
	_, err = svc.Redeem(ctx, token.ID)
	require.ErrorIs(t, err, ErrTokenUnauthorized)
}

func TestTokenRedeemUnknownState(t *testing.T) {
	ctx := context.Background()
	svc := &TokenService{Store: newTestStore(t)}

	_, err := svc.Redeem(ctx, "no-such-token")
	require.ErrorIs(t, err, ErrTokenUnauthorized)
}

func TestTokenActivateTwice(t *testing.T) {
	ctx := context.Background()
	svc := &TokenService{Store: newTestStore(t)}

	token, err := svc.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, svc.Activate(ctx, token.ID, "first"))
	require.ErrorIs(t, svc.Activate(ctx, token.ID, "second"), ErrTokenAlreadyActive)

	// The first payload survives.
	payload, err := svc.Redeem(ctx, token.ID)
	require.NoError(t, err)
	require.Equal(t, "first", payload)
}

func TestTokenActivateUnknown(t *testing.T) {
	ctx := context.Background()
	svc := &TokenService{Store: newTestStore(t)}

	require.ErrorIs(t, svc.Activate(ctx, "no-such-token", "jwt"), ErrTokenNotFound)
}

func TestTokenExpiredNotRedeemable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TokenService{Store: st}

	now := time.Now().UTC()
	expired := domain.BridgingToken{
		ID:        "expired-token",
		Status:    domain.TokenStatusActive,
		Payload:   "jwt",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	}
	require.NoError(t, st.Tokens().CreateToken(ctx, expired))

	_, err := svc.Redeem(ctx, "expired-token")
	require.ErrorIs(t, err, ErrTokenUnauthorized)
}

func TestTokenActivateExpired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TokenService{Store: st}

	now := time.Now().UTC()
	expired := domain.BridgingToken{
		ID:        "expired-token",
		Status:    domain.TokenStatusPending,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	}
	require.NoError(t, st.Tokens().CreateToken(ctx, expired))

	require.ErrorIs(t, svc.Activate(ctx, "expired-token", "jwt"), ErrTokenNotFound)
}

func TestTokenConcurrentRedeemSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc := &TokenService{Store: newFileTestStore(t)}

	token, err := svc.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.Activate(ctx, token.ID, "session-jwt"))

	const attempts = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		payloads []string
		failures int
	)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := svc.Redeem(ctx, token.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			payloads = append(payloads, payload)
		}()
	}
	wg.Wait()

	require.Len(t, payloads, 1, "exactly one redemption must win")
	require.Equal(t, "session-jwt", payloads[0])
	require.Equal(t, attempts-1, failures)
}

func TestTokenHousekeepingDeletesExpired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, st.Tokens().CreateToken(ctx, domain.BridgingToken{
		ID:        "stale",
		Status:    domain.TokenStatusPending,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, st.Tokens().CreateToken(ctx, domain.BridgingToken{
		ID:        "fresh",
		Status:    domain.TokenStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(TokenLease),
	}))

	require.NoError(t, st.Tokens().DeleteExpiredTokens(ctx, now))

	_, err := st.Tokens().GetToken(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Tokens().GetToken(ctx, "fresh")
	require.NoError(t, err)
}
