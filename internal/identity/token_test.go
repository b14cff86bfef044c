package identity

import (
	"testing"
	"time"
)

const testIssuerURL = "http://localhost:8080"

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), testIssuerURL, time.Hour)

	token, err := issuer.Issue("user_123", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user_123" {
		t.Errorf("userID = %q", claims.UserID)
	}
	if claims.Wallet != "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" {
		t.Errorf("wallet = %q", claims.Wallet)
	}
	if claims.Role == "admin" {
		t.Error("regular session should not carry the admin role")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), testIssuerURL, time.Hour)
	other := NewTokenIssuer([]byte("secret-b"), testIssuerURL, time.Hour)

	token, err := issuer.Issue("user_123", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("token verified under a different secret")
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), testIssuerURL, time.Millisecond)

	token, err := issuer.Issue("user_123", "")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := issuer.Verify(token); err == nil {
		t.Error("expired token verified")
	}
}

func TestTokenGarbage(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), testIssuerURL, time.Hour)
	if _, err := issuer.Verify("not.a.jwt"); err == nil {
		t.Error("garbage token verified")
	}
}

func TestAdminToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), testIssuerURL, time.Hour)

	token, err := issuer.IssueAdmin(time.Hour)
	if err != nil {
		t.Fatalf("issue admin: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify admin: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
}
