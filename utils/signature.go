// utils/signature.go
package utils

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ReferralMessage builds the exact byte sequence the frontend signs when
// requesting a referral code. The wallet address is embedded as the
// caller sent it (not normalized) so the recovered hash matches.
func ReferralMessage(walletAddress, nonce string) string {
	if nonce == "" {
		nonce = "MISSING_NONCE"
	}
	return fmt.Sprintf("ZeroGPool Referral Verification\nWallet: %s\nNonce: %s", walletAddress, nonce)
}

// RecoverSigner recovers the signing address from an EIP-191 personal
// message signature (the scheme behind eth_sign / signer.signMessage).
func RecoverSigner(message, signatureHex string) (common.Address, error) {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("malformed signature hex: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// Wallets emit V as 27/28; go-ethereum expects 0/1
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
