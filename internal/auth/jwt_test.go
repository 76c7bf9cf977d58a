package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123", "")
	token, err := mgr.GenerateAccessToken("client-42")
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.ClientID != "client-42" {
		t.Errorf("expected client_id=client-42, got %s", claims.ClientID)
	}
	if claims.Subject != "client-42" {
		t.Errorf("expected subject=client-42, got %s", claims.Subject)
	}
}

func TestGenerateAndValidateRefreshToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123", "")
	token, err := mgr.GenerateRefreshToken("client-99")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.ClientID != "client-99" {
		t.Errorf("expected client_id=client-99, got %s", claims.ClientID)
	}
}

func TestGenerateTokenPair(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123", "")
	pair, err := mgr.GenerateTokenPair("client-7")
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("expected non-empty access token")
	}
	if pair.RefreshToken == "" {
		t.Error("expected non-empty refresh token")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("access and refresh tokens should be different")
	}
	if pair.ExpiresIn != 900 {
		t.Errorf("expected expires_in=900, got %d", pair.ExpiresIn)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one", "")
	mgr2 := NewJWTManager("secret-two", "")

	token, err := mgr1.GenerateAccessToken("client-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr2.ValidateToken(token)
	if err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret", "")
	_, err := mgr.ValidateToken("not-a-jwt")
	if err == nil {
		t.Error("expected error for garbage token")
	}
	_, err = mgr.ValidateToken("")
	if err == nil {
		t.Error("expected error for empty token")
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := &JWTManager{
		secret:        []byte("test-secret"),
		accessExpiry:  -1 * time.Second,
		refreshExpiry: 7 * 24 * time.Hour,
	}
	token, err := mgr.GenerateAccessToken("client-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr.ValidateToken(token)
	if err == nil {
		t.Error("expected error for expired token")
	}
}

func TestDifferentClientsGetDifferentTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret", "")
	t1, _ := mgr.GenerateAccessToken("alice")
	t2, _ := mgr.GenerateAccessToken("bob")
	if t1 == t2 {
		t.Error("different clients should get different tokens")
	}
}

func TestVerifyClientKey(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		presented  string
		wantErr    bool
	}{
		{"match", "k3y", "k3y", false},
		{"mismatch", "k3y", "other", true},
		{"empty presented", "k3y", "", true},
		{"issuing disabled", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewJWTManager("test-secret", tt.configured)
			err := mgr.VerifyClientKey(tt.presented)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyClientKey(%q) error = %v, wantErr %v", tt.presented, err, tt.wantErr)
			}
		})
	}
}

func TestTokenKinds(t *testing.T) {
	mgr := NewJWTManager("test-secret", "k3y")
	pair, err := mgr.GenerateTokenPair("transport-1")
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}

	if _, err := mgr.ValidateAccessToken(pair.AccessToken); err != nil {
		t.Errorf("ValidateAccessToken(access) error = %v", err)
	}
	if _, err := mgr.ValidateAccessToken(pair.RefreshToken); err != ErrInvalidToken {
		t.Errorf("ValidateAccessToken(refresh) error = %v, want %v", err, ErrInvalidToken)
	}
	if _, err := mgr.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("ValidateRefreshToken(refresh) error = %v", err)
	}
	if _, err := mgr.ValidateRefreshToken(pair.AccessToken); err != ErrInvalidToken {
		t.Errorf("ValidateRefreshToken(access) error = %v, want %v", err, ErrInvalidToken)
	}
}
