// services/referral_service.go
package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"zerogpool-backend/models"
	"zerogpool-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Claim error taxonomy, mapped to HTTP statuses by the handlers.
var (
	ErrCodeNotFound = errors.New("referral code not found")
	ErrSelfReferral = errors.New("cannot claim own referral code")
	ErrCodeConflict = errors.New("could not allocate a unique referral code")
)

// Regenerate-and-retry bound for code allocation. The DB unique index is
// the final authority on uniqueness; the pre-check just makes retries rare.
const maxCodeAttempts = 5

type ReferralService struct {
	DB      *gorm.DB
	BaseURL string // canonical product URL referral links point at
}

func NewReferralService(db *gorm.DB) *ReferralService {
	baseURL := os.Getenv("REFERRAL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://zerogpool.xyz"
	}
	return &ReferralService{DB: db, BaseURL: strings.TrimRight(baseURL, "/")}
}

// ReferralLink builds the shareable link for a code.
func (s *ReferralService) ReferralLink(code string) string {
	return fmt.Sprintf("%s/?ref=%s", s.BaseURL, code)
}

// generateCode returns an 8-char uppercase hex token (4 random bytes).
// Enough entropy for a casual reward program; collisions are handled by
// the allocation retry loop, not prevented here.
func generateCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// --- Handlers ---

// GenerateReferralCode issues (or re-returns) the caller's referral code.
// Proof of wallet ownership is an EIP-191 signature over the fixed
// challenge message; no JWT involved.
func (s *ReferralService) GenerateReferralCode(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Signature     string `json:"signature"`
		Nonce         string `json:"nonce"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body",
		})
	}
	if req.WalletAddress == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "walletAddress and signature are required",
		})
	}
	if !IsValidWalletAddress(req.WalletAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid wallet address format",
		})
	}

	// The message the frontend signed, with the wallet exactly as sent
	message := utils.ReferralMessage(req.WalletAddress, req.Nonce)

	recovered, err := utils.RecoverSigner(message, req.Signature)
	if err != nil {
		log.Printf("🚫 Signature verify error for %s: %v", req.WalletAddress, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false, "error": "Invalid signature",
		})
	}

	normalized := NormalizeWallet(req.WalletAddress)
	if !strings.EqualFold(recovered.Hex(), normalized) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false, "error": "Signature does not match wallet",
		})
	}

	account, _, err := EnsureAccount(s.DB, normalized)
	if err != nil {
		log.Printf("DB Error ensuring account for %s: %v", normalized, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	// Idempotent: a wallet's code never changes once set
	if account.Referral.Code != nil {
		return c.JSON(fiber.Map{
			"success":      true,
			"referralCode": *account.Referral.Code,
			"referralLink": s.ReferralLink(*account.Referral.Code),
		})
	}

	code, err := s.AssignCode(account)
	if err != nil {
		if errors.Is(err, ErrCodeConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false, "error": "Could not allocate referral code, please retry",
			})
		}
		log.Printf("DB Error assigning referral code for %s: %v", normalized, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"referralCode": code,
		"referralLink": s.ReferralLink(code),
	})
}

// ClaimReferral records that the calling wallet was invited by code.
func (s *ReferralService) ClaimReferral(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		ReferralCode  string `json:"referralCode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body",
		})
	}
	if req.WalletAddress == "" || req.ReferralCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "walletAddress and referralCode required",
		})
	}
	if !IsValidWalletAddress(req.WalletAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid wallet address format",
		})
	}

	result, err := s.Claim(NormalizeWallet(req.WalletAddress), NormalizeCode(req.ReferralCode))
	if err != nil {
		switch {
		case errors.Is(err, ErrCodeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false, "error": "Invalid referral code",
			})
		case errors.Is(err, ErrSelfReferral):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "error": "You cannot use your own referral code",
			})
		default:
			log.Printf("Referral Claim Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false, "error": "Internal server error",
			})
		}
	}

	if result.AlreadyClaimed {
		return c.JSON(fiber.Map{
			"success":       true,
			"message":       "Referral already counted",
			"referralCount": result.Count,
		})
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "Referral claimed successfully",
		"referralCount": result.Count,
	})
}

// GetReferralStats returns the authenticated wallet's referral sub-state.
func (s *ReferralService) GetReferralStats(c *fiber.Ctx) error {
	wallet := c.Locals("wallet_address").(string)

	account, _, err := EnsureAccount(s.DB, wallet)
	if err != nil {
		log.Printf("DB Error fetching referral stats for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"referralCode":  account.Referral.Code,
		"referralCount": account.Referral.Count,
		"referredBy":    account.Referral.ReferredBy,
	})
}

// --- Core operations ---

// NormalizeCode uppercases a referral code to the generation format.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AssignCode allocates a fresh unique code for account and persists it.
// Safe to race: the sparse unique index on referral_code is authoritative,
// and losing either race (code collision, or someone else setting this
// account's code) is retried or resolved to the stored value.
func (s *ReferralService) AssignCode(account *models.Account) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}

		holder, err := FindAccountByReferralCode(s.DB, code)
		if err != nil {
			return "", err
		}
		if holder != nil {
			continue
		}

		res := s.DB.Model(&models.Account{}).
			Where("id = ? AND referral_code IS NULL", account.ID).
			Update("referral_code", code)
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				continue
			}
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent generate won; return the code it stored
			current, err := FindAccount(s.DB, account.WalletAddress)
			if err != nil {
				return "", err
			}
			if current != nil && current.Referral.Code != nil {
				return *current.Referral.Code, nil
			}
			continue
		}

		account.Referral.Code = &code
		return code, nil
	}
	return "", ErrCodeConflict
}

// ClaimResult reports the outcome of a claim attempt.
type ClaimResult struct {
	AlreadyClaimed bool
	Count          int64
}

// Claim applies walletAddress's claim of code. First claim wins: any prior
// claim (same code or not) short-circuits to a no-op reporting the
// inviter's current count. The two writes (mark claimer, bump inviter)
// target different rows and are deliberately not one transaction; a crash
// between them leaves drift the reconciler heals.
func (s *ReferralService) Claim(walletAddress, code string) (*ClaimResult, error) {
	inviter, err := FindAccountByReferralCode(s.DB, code)
	if err != nil {
		return nil, err
	}
	if inviter == nil {
		return nil, ErrCodeNotFound
	}
	if inviter.WalletAddress == walletAddress {
		return nil, ErrSelfReferral
	}

	claimer, _, err := EnsureAccount(s.DB, walletAddress)
	if err != nil {
		return nil, err
	}
	if claimer.Referral.ReferredBy != nil {
		return &ClaimResult{AlreadyClaimed: true, Count: inviter.Referral.Count}, nil
	}

	res := s.DB.Model(&models.Account{}).
		Where("id = ? AND referral_referred_by IS NULL", claimer.ID).
		Update("referral_referred_by", code)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost to a concurrent claim by the same wallet
		return &ClaimResult{AlreadyClaimed: true, Count: inviter.Referral.Count}, nil
	}

	if err := s.DB.Model(&models.Account{}).
		Where("id = ?", inviter.ID).
		UpdateColumn("referral_count", gorm.Expr("referral_count + 1")).Error; err != nil {
		// Claim is recorded; counter drift is logged and reconciled later
		log.Printf("⚠️  Referral count increment failed for %s: %v", inviter.WalletAddress, err)
	}

	count := inviter.Referral.Count + 1
	if fresh, err := FindAccountByReferralCode(s.DB, code); err == nil && fresh != nil {
		count = fresh.Referral.Count
	}
	return &ClaimResult{Count: count}, nil
}

// ReconcileCounts recomputes each inviter's referral_count from the
// referred_by ledger and fixes drifted rows. Returns how many were fixed.
func (s *ReferralService) ReconcileCounts() (int, error) {
	var inviters []models.Account
	if err := s.DB.Where("referral_code IS NOT NULL").Find(&inviters).Error; err != nil {
		return 0, err
	}

	fixed := 0
	for _, inv := range inviters {
		var actual int64
		if err := s.DB.Model(&models.Account{}).
			Where("referral_referred_by = ?", *inv.Referral.Code).
			Count(&actual).Error; err != nil {
			return fixed, err
		}
		if actual == inv.Referral.Count {
			continue
		}
		if err := s.DB.Model(&models.Account{}).
			Where("id = ?", inv.ID).
			UpdateColumn("referral_count", actual).Error; err != nil {
			return fixed, err
		}
		log.Printf("🔧 Reconciled referral count for %s: %d → %d",
			inv.WalletAddress, inv.Referral.Count, actual)
		fixed++
	}
	return fixed, nil
}
