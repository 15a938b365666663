package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidWalletAddress(t *testing.T) {
	assert.True(t, IsValidWalletAddress(testWalletA))
	assert.True(t, IsValidWalletAddress("0xAbCdEf1234567890aBcDeF1234567890abcdef12"))

	assert.False(t, IsValidWalletAddress(""))
	assert.False(t, IsValidWalletAddress("0x123"))
	assert.False(t, IsValidWalletAddress("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.False(t, IsValidWalletAddress("0xZZaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
}

func TestNormalizeWallet(t *testing.T) {
	assert.Equal(t, testWalletA, NormalizeWallet(" 0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA "))
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	first, created, err := EnsureAccount(db, testWalletA)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	second, created, err := EnsureAccount(db, testWalletA)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindAccountAbsent(t *testing.T) {
	db := newTestDB(t)

	account, err := FindAccount(db, testWalletA)
	require.NoError(t, err)
	assert.Nil(t, account)

	account, err = FindAccountByReferralCode(db, "AB12CD34")
	require.NoError(t, err)
	assert.Nil(t, account)
}
