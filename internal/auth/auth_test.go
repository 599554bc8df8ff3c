package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateToken(42, "alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").GenerateToken(1, "bob", "user")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewJWTService("secret-b").ValidateToken(token); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewJWTService("test-secret")
	for _, tok := range []string{"", "not.a.token", "eyJhbGciOiJub25lIn0.e30."} {
		if _, err := svc.ValidateToken(tok); err == nil {
			t.Errorf("ValidateToken(%q) accepted an invalid token", tok)
		}
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash equals the plaintext password")
	}
	if !CheckPassword("hunter2", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}
