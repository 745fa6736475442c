package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret")
	token, err := tm.Issue("owner-1", "owner", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	principal, err := tm.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if principal.UserID != "owner-1" || principal.Role != "owner" {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret")
	token, err := tm.Issue("member-1", "member", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tm.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("other-secret").Issue("member-1", "member", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenManager("test-secret").Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsUnexpectedAlgorithm(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "member-1", Issuer: issuer}, Role: "member"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenManager("test-secret").Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticatorHeaderFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := (Authenticator{}).Authenticate(req); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer token")
	if _, err := (Authenticator{}).Authenticate(req); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}

	req.Header.Set("X-User-Id", "developer-1")
	req.Header.Set("X-User-Role", "developer")
	principal, err := (Authenticator{}).Authenticate(req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.UserID != "developer-1" || principal.Role != "developer" {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestAuthenticatorIgnoresHeadersWhenTokensConfigured(t *testing.T) {
	tm := NewTokenManager("test-secret")
	token, err := tm.Issue("member-1", "member", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-User-Id", "owner-1")
	req.Header.Set("X-User-Role", "owner")

	principal, err := (Authenticator{Tokens: tm}).Authenticate(req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.UserID != "member-1" || principal.Role != "member" {
		t.Fatalf("expected token identity, got %+v", principal)
	}
}
