package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"regexp"
	"testing"

	"zerogpool-backend/models"
	"zerogpool-backend/utils"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testWalletA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testWalletB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	testWalletC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func newReferralService(t *testing.T) *ReferralService {
	t.Helper()
	return &ReferralService{DB: newTestDB(t), BaseURL: "https://zerogpool.xyz"}
}

// seedInviter creates an account holding the given referral code.
func seedInviter(t *testing.T, db *gorm.DB, wallet, code string) *models.Account {
	t.Helper()
	account, _, err := EnsureAccount(db, wallet)
	require.NoError(t, err)
	require.NoError(t, db.Model(account).Update("referral_code", code).Error)
	account.Referral.Code = &code
	return account
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeCode("  ab12cd34 "))
	assert.Equal(t, "AB12CD34", NormalizeCode("AB12CD34"))
}

func TestAssignCodeFormat(t *testing.T) {
	svc := newReferralService(t)
	account, _, err := EnsureAccount(svc.DB, testWalletA)
	require.NoError(t, err)

	code, err := svc.AssignCode(account)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), code)
}

func TestAssignCodeIsStable(t *testing.T) {
	svc := newReferralService(t)
	account, _, err := EnsureAccount(svc.DB, testWalletA)
	require.NoError(t, err)

	first, err := svc.AssignCode(account)
	require.NoError(t, err)

	// A second allocation attempt for the same wallet must resolve to
	// the stored code, not mint a new one.
	stale, _, err := EnsureAccount(svc.DB, testWalletA)
	require.NoError(t, err)
	stale.Referral.Code = nil

	second, err := svc.AssignCode(stale)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssignCodesAreUnique(t *testing.T) {
	svc := newReferralService(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		wallet := fmt.Sprintf("0x%040x", i+1)
		account, _, err := EnsureAccount(svc.DB, wallet)
		require.NoError(t, err)
		code, err := svc.AssignCode(account)
		require.NoError(t, err)
		assert.False(t, seen[code], "code %s allocated twice", code)
		seen[code] = true
	}
}

func TestClaimSuccess(t *testing.T) {
	svc := newReferralService(t)
	seedInviter(t, svc.DB, testWalletA, "AB12CD34")

	result, err := svc.Claim(testWalletB, "AB12CD34")
	require.NoError(t, err)
	assert.False(t, result.AlreadyClaimed)
	assert.Equal(t, int64(1), result.Count)

	claimer, err := FindAccount(svc.DB, testWalletB)
	require.NoError(t, err)
	require.NotNil(t, claimer.Referral.ReferredBy)
	assert.Equal(t, "AB12CD34", *claimer.Referral.ReferredBy)

	inviter, err := FindAccount(svc.DB, testWalletA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inviter.Referral.Count)
}

func TestClaimReplayIsNoOp(t *testing.T) {
	svc := newReferralService(t)
	seedInviter(t, svc.DB, testWalletA, "AB12CD34")

	_, err := svc.Claim(testWalletB, "AB12CD34")
	require.NoError(t, err)

	result, err := svc.Claim(testWalletB, "AB12CD34")
	require.NoError(t, err)
	assert.True(t, result.AlreadyClaimed)
	assert.Equal(t, int64(1), result.Count)

	inviter, err := FindAccount(svc.DB, testWalletA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inviter.Referral.Count)
}

func TestClaimBlockedByAnyPriorClaim(t *testing.T) {
	svc := newReferralService(t)
	seedInviter(t, svc.DB, testWalletA, "AB12CD34")
	seedInviter(t, svc.DB, testWalletC, "EF56AB78")

	_, err := svc.Claim(testWalletB, "AB12CD34")
	require.NoError(t, err)

	// A wallet referred once stays referred; a different code changes nothing
	result, err := svc.Claim(testWalletB, "EF56AB78")
	require.NoError(t, err)
	assert.True(t, result.AlreadyClaimed)

	second, err := FindAccount(svc.DB, testWalletC)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Referral.Count)

	claimer, err := FindAccount(svc.DB, testWalletB)
	require.NoError(t, err)
	assert.Equal(t, "AB12CD34", *claimer.Referral.ReferredBy)
}

func TestClaimSelfReferral(t *testing.T) {
	svc := newReferralService(t)
	seedInviter(t, svc.DB, testWalletA, "AB12CD34")

	_, err := svc.Claim(testWalletA, "AB12CD34")
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestClaimUnknownCode(t *testing.T) {
	svc := newReferralService(t)

	_, err := svc.Claim(testWalletB, "NOPE0000")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestClaimCountsAccumulate(t *testing.T) {
	svc := newReferralService(t)
	seedInviter(t, svc.DB, testWalletA, "AB12CD34")

	for i := 0; i < 5; i++ {
		wallet := fmt.Sprintf("0x%040x", i+100)
		result, err := svc.Claim(wallet, "AB12CD34")
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), result.Count)
	}

	inviter, err := FindAccount(svc.DB, testWalletA)
	require.NoError(t, err)
	assert.Equal(t, int64(5), inviter.Referral.Count)
}

func TestReconcileCountsFixesDrift(t *testing.T) {
	svc := newReferralService(t)
	inviter := seedInviter(t, svc.DB, testWalletA, "AB12CD34")

	_, err := svc.Claim(testWalletB, "AB12CD34")
	require.NoError(t, err)
	_, err = svc.Claim(testWalletC, "AB12CD34")
	require.NoError(t, err)

	// Simulate a crash between the two claim writes
	require.NoError(t, svc.DB.Model(&models.Account{}).
		Where("id = ?", inviter.ID).
		UpdateColumn("referral_count", 99).Error)

	fixed, err := svc.ReconcileCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	fresh, err := FindAccount(svc.DB, testWalletA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Referral.Count)

	// Already consistent: nothing to fix
	fixed, err = svc.ReconcileCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}

func TestReferralLink(t *testing.T) {
	svc := newReferralService(t)
	assert.Equal(t, "https://zerogpool.xyz/?ref=AB12CD34", svc.ReferralLink("AB12CD34"))
}

// --- HTTP surface ---

func newReferralApp(t *testing.T) (*fiber.App, *ReferralService) {
	t.Helper()
	svc := newReferralService(t)
	app := fiber.New()
	app.Post("/api/referral/generate", svc.GenerateReferralCode)
	app.Post("/api/referral/claim", svc.ClaimReferral)
	return app, svc
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestGenerateReferralCodeEndpoint(t *testing.T) {
	app, svc := newReferralApp(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	wallet := crypto.PubkeyToAddress(key.PublicKey).Hex()

	message := utils.ReferralMessage(wallet, "nonce-1")
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[64] += 27 // wallet-style V

	status, body := postJSON(t, app, "/api/referral/generate", fiber.Map{
		"walletAddress": wallet,
		"signature":     hexutil.Encode(sig),
		"nonce":         "nonce-1",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	code, _ := body["referralCode"].(string)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), code)
	assert.Equal(t, svc.ReferralLink(code), body["referralLink"])

	// Idempotent: same wallet gets the same code back
	status, body = postJSON(t, app, "/api/referral/generate", fiber.Map{
		"walletAddress": wallet,
		"signature":     hexutil.Encode(sig),
		"nonce":         "nonce-1",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, code, body["referralCode"])
}

func TestGenerateReferralCodeRejectsWrongWallet(t *testing.T) {
	app, _ := newReferralApp(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	// Signature is valid but was produced by a different key than the
	// wallet in the request claims.
	message := utils.ReferralMessage(testWalletA, "nonce-1")
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[64] += 27

	status, body := postJSON(t, app, "/api/referral/generate", fiber.Map{
		"walletAddress": testWalletA,
		"signature":     hexutil.Encode(sig),
		"nonce":         "nonce-1",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Signature does not match wallet", body["error"])
}

func TestGenerateReferralCodeRejectsGarbageSignature(t *testing.T) {
	app, _ := newReferralApp(t)

	status, body := postJSON(t, app, "/api/referral/generate", fiber.Map{
		"walletAddress": testWalletA,
		"signature":     "0xdeadbeef",
		"nonce":         "nonce-1",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid signature", body["error"])
}

func TestClaimEndpointStatuses(t *testing.T) {
	app, svc := newReferralApp(t)
	seedInviter(t, svc.DB, testWalletA, "AB12CD34")

	status, body := postJSON(t, app, "/api/referral/claim", fiber.Map{
		"walletAddress": testWalletB,
		"referralCode":  "ab12cd34", // lowercase input is normalized
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Referral claimed successfully", body["message"])
	assert.Equal(t, float64(1), body["referralCount"])

	status, body = postJSON(t, app, "/api/referral/claim", fiber.Map{
		"walletAddress": testWalletB,
		"referralCode":  "AB12CD34",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Referral already counted", body["message"])
	assert.Equal(t, float64(1), body["referralCount"])

	status, body = postJSON(t, app, "/api/referral/claim", fiber.Map{
		"walletAddress": testWalletA,
		"referralCode":  "AB12CD34",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "You cannot use your own referral code", body["error"])

	status, body = postJSON(t, app, "/api/referral/claim", fiber.Map{
		"walletAddress": testWalletC,
		"referralCode":  "NOPE0000",
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Invalid referral code", body["error"])

	status, _ = postJSON(t, app, "/api/referral/claim", fiber.Map{
		"walletAddress": "not-a-wallet",
		"referralCode":  "AB12CD34",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}
