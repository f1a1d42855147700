package session

import (
	"testing"
	"time"

	"github.com/launchforge/launchforge-backend/pkg/config"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{Secret: "secret", Issuer: "issuer"}
}

func TestParseRoundTrip(t *testing.T) {
	cfg := testConfig()
	token, err := Issue(cfg, Claims{
		TenantID:   "tenant-1",
		TenantName: "Acme",
		Email:      "owner@acme.test",
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Parse(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TenantID != "tenant-1" {
		t.Fatalf("expected tenant-1 got %s", claims.TenantID)
	}
	if claims.TenantName != "Acme" {
		t.Fatalf("expected Acme got %s", claims.TenantName)
	}
	if claims.Email != "owner@acme.test" {
		t.Fatalf("expected owner email got %s", claims.Email)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Issue(config.SessionConfig{Secret: "other", Issuer: "issuer"}, Claims{
		TenantID: "tenant-1",
		Email:    "owner@acme.test",
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = Parse(testConfig(), token)
	assertUnauthorized(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	token, err := Issue(cfg, Claims{
		TenantID: "tenant-1",
		Email:    "owner@acme.test",
	}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = Parse(cfg, token)
	assertUnauthorized(t, err)
}

func TestParseRejectsMissingTenant(t *testing.T) {
	cfg := testConfig()
	token, err := Issue(cfg, Claims{Email: "owner@acme.test"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = Parse(cfg, token)
	assertUnauthorized(t, err)
}

func TestParseRejectsEmptyToken(t *testing.T) {
	_, err := Parse(testConfig(), "")
	assertUnauthorized(t, err)
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error got %v", err)
	}
}
