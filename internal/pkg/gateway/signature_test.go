package gateway

import (
	"testing"

	"github.com/google/uuid"
)

func TestBuildPurchaseBase(t *testing.T) {
	userID := uuid.MustParse("7a9e3f1c-5b2d-4e8a-9c6f-1d2e3f4a5b6c")
	base := BuildPurchaseBase(userID, 250, "TXN-ABC123")

	expected := "7a9e3f1c-5b2d-4e8a-9c6f-1d2e3f4a5b6c:250:TXN-ABC123"
	if base != expected {
		t.Fatalf("unexpected base string:\nwant %s\ngot  %s", expected, base)
	}
}

func TestVerifyPurchase_RoundTrip(t *testing.T) {
	userID := uuid.New()
	sig := SignPurchase("shared-secret", userID, 100, "TXN-1")

	if !VerifyPurchase("shared-secret", userID, 100, "TXN-1", sig) {
		t.Fatal("expected signature to verify")
	}
	if !VerifyPurchase("shared-secret", userID, 100, "TXN-1", "  "+sig+" ") {
		t.Fatal("expected verification to tolerate surrounding whitespace")
	}
}

func TestVerifyPurchase_Rejects(t *testing.T) {
	userID := uuid.New()
	sig := SignPurchase("shared-secret", userID, 100, "TXN-1")

	cases := []struct {
		name      string
		secret    string
		points    int64
		reference string
		received  string
	}{
		{"wrong secret", "other-secret", 100, "TXN-1", sig},
		{"tampered amount", "shared-secret", 9999, "TXN-1", sig},
		{"tampered reference", "shared-secret", 100, "TXN-2", sig},
		{"empty signature", "shared-secret", 100, "TXN-1", ""},
		{"empty secret disables surface", "", 100, "TXN-1", sig},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifyPurchase(tc.secret, userID, tc.points, tc.reference, tc.received) {
				t.Fatal("expected verification to fail")
			}
		})
	}
}
