package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	testNow    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func TestSignAndVerify(t *testing.T) {
	token, err := Sign(testSecret, "alice", testNow, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := Verify(testSecret, token, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "alice" {
		t.Errorf("subject = %q, want %q", sub, "alice")
	}
}

func TestVerifyExpired(t *testing.T) {
	token, err := Sign(testSecret, "alice", testNow, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = Verify(testSecret, token, testNow.Add(time.Hour))
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := Sign(testSecret, "alice", testNow, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = Verify([]byte("another-secret-another-secret-xx"), token, testNow)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Verify(testSecret, token, testNow); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRequiresSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Verify(testSecret, token, testNow); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestSignEmptyAccount(t *testing.T) {
	if _, err := Sign(testSecret, "", testNow, time.Hour); err == nil {
		t.Error("expected error for empty account")
	}
}
