package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserFindOrCreate(t *testing.T) {
	ctx := context.Background()
	svc := &UserService{Store: newTestStore(t)}

	created, err := svc.FindOrCreate(ctx, "github", "12345", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "alice", created.Username)

	// Second login resolves to the same row.
	found, err := svc.FindOrCreate(ctx, "github", "12345", "alice")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	// Same subject on another provider is a different user.
	other, err := svc.FindOrCreate(ctx, "gitlab", "12345", "alice")
	require.NoError(t, err)
	require.NotEqual(t, created.ID, other.ID)
}

func TestVaultRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	vault := &VaultService{Store: st}
	users := &UserService{Store: st}

	user, err := users.FindOrCreate(ctx, "github", "777", "bob")
	require.NoError(t, err)

	// No active passkey yet.
	require.ErrorIs(t, vault.StoreTransactionData(ctx, user.ID, "0xabc", "aXY"), ErrAuthenticatorNotFound)

	fv := &fakeVerifier{registered: RegisteredCredential{CredentialID: "Y3JlZA", PublicKey: []byte{0x01}}}
	passkeys := newPasskeyService(st, fv)
	_, err = passkeys.RegistrationOptions(ctx, user.ID, testOrigin)
	require.NoError(t, err)
	require.NoError(t, passkeys.VerifyRegistration(ctx, user.ID, testOrigin, []byte(`{}`)))

	require.NoError(t, vault.StoreTransactionData(ctx, user.ID, "0xabc", "aXY"))

	hash, iv, err := vault.GetTransactionData(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "0xabc", hash)
	require.Equal(t, "aXY", iv)
}
