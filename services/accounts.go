// services/accounts.go
package services

import (
	"errors"
	"log"
	"regexp"
	"strings"

	"zerogpool-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var walletAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidWalletAddress reports whether s looks like an EVM address.
func IsValidWalletAddress(s string) bool {
	return walletAddressRe.MatchString(s)
}

// NormalizeWallet lowercases a wallet address to its canonical stored form.
func NormalizeWallet(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindAccount looks up an account by normalized wallet address.
// Returns (nil, nil) when absent.
func FindAccount(db *gorm.DB, walletAddress string) (*models.Account, error) {
	var account models.Account
	err := db.Where("wallet_address = ?", walletAddress).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindAccountByReferralCode looks up the inviter account holding code.
// Returns (nil, nil) when no account holds it.
func FindAccountByReferralCode(db *gorm.DB, code string) (*models.Account, error) {
	var account models.Account
	err := db.Where("referral_code = ?", code).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// EnsureAccount fetches the account for walletAddress, creating it with
// defaults if it doesn't exist yet. The second return reports creation.
func EnsureAccount(db *gorm.DB, walletAddress string) (*models.Account, bool, error) {
	account, err := FindAccount(db, walletAddress)
	if err != nil {
		return nil, false, err
	}
	if account != nil {
		return account, false, nil
	}

	account = models.NewAccount(uuid.NewString(), walletAddress)
	if err := db.Create(account).Error; err != nil {
		// Lost a create race with a concurrent request for the same wallet
		if isUniqueViolation(err) {
			existing, ferr := FindAccount(db, walletAddress)
			if ferr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	log.Printf("👤 New account created: %s", walletAddress)
	return account, true, nil
}

// isUniqueViolation detects a unique-constraint error from the store
// (postgres 23505 in production, sqlite's message in tests).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
