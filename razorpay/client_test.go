package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "test_secret"
	orderID := "order_ABC123"
	paymentID := "pay_XYZ789"

	good := sign(secret, orderID, paymentID)
	if !VerifySignatureWithSecret(secret, orderID, paymentID, good) {
		t.Error("valid signature rejected")
	}
	if VerifySignatureWithSecret(secret, orderID, paymentID, sign("wrong_secret", orderID, paymentID)) {
		t.Error("signature from a different secret accepted")
	}
	if VerifySignatureWithSecret(secret, "order_OTHER", paymentID, good) {
		t.Error("signature over a different order accepted")
	}
	if VerifySignatureWithSecret(secret, orderID, paymentID, "") {
		t.Error("empty signature accepted")
	}
	if VerifySignatureWithSecret(secret, "", "", sign(secret, "", "")) {
		t.Error("empty order/payment ids accepted")
	}
}
