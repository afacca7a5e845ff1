package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// The payment collaborator is the only caller allowed to record purchase
// credits. It proves itself by signing each request with a shared secret:
//
//	X-Gateway-Signature: hex(HMAC-SHA256(secret, "{user_id}:{points}:{reference}"))
//
// The core verifies the signature and records the credit; payment
// correctness (amounts, currency, refunds) stays on the gateway's side.

// BuildPurchaseBase builds the canonical string covered by the signature
func BuildPurchaseBase(userID uuid.UUID, points int64, reference string) string {
	return userID.String() + ":" + strconv.FormatInt(points, 10) + ":" + reference
}

// SignPurchase computes the hex HMAC for a purchase notification
func SignPurchase(secret string, userID uuid.UUID, points int64, reference string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(BuildPurchaseBase(userID, points, reference)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPurchase checks a received signature in constant time.
// An empty secret disables the gateway surface entirely.
func VerifyPurchase(secret string, userID uuid.UUID, points int64, reference, receivedHex string) bool {
	if secret == "" || receivedHex == "" {
		return false
	}
	expected := SignPurchase(secret, userID, points, reference)
	received := strings.ToLower(strings.TrimSpace(receivedHex))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
