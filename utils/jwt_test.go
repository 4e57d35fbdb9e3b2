package utils

import (
	"os"
	"testing"
	"time"

	"github.com/playpoints/ledger/config"
)

func TestMain(m *testing.M) {
	config.Override(config.AppConfig{JWTSecret: "utils-test-secret"})
	os.Exit(m.Run())
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("github:42", "Ada", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Handle != "github:42" || claims.DisplayName != "Ada" || claims.Subject != "github:42" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	tok, err := GenerateToken("github:42", "", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken(tok); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
	}
	for header, want := range cases {
		got, ok := BearerToken(header)
		if !ok || got != want {
			t.Fatalf("%q: expected %q, got %q (%v)", header, want, got, ok)
		}
	}
	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		if _, ok := BearerToken(header); ok {
			t.Fatalf("%q: expected rejection", header)
		}
	}
}

func TestRevokedTokenInMemory(t *testing.T) {
	tok := "some.jwt.value"
	if IsTokenRevoked(tok) {
		t.Fatal("expected fresh token to be valid")
	}
	RevokeToken(tok, time.Now().Add(time.Minute))
	if !IsTokenRevoked(tok) {
		t.Fatal("expected token to be revoked")
	}
}

func TestStateIsBoundToProvider(t *testing.T) {
	SaveState("s1", "github", time.Minute)
	if ConsumeState("s1", "google") {
		t.Fatal("expected provider mismatch to fail")
	}
	SaveState("s2", "github", time.Minute)
	if !ConsumeState("s2", "github") {
		t.Fatal("expected state to be accepted")
	}
	if ConsumeState("s2", "github") {
		t.Fatal("expected state to be single use")
	}
}

func TestCleanText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"<script>alert(1)</script>Half-Life", "Half-Life"},
		{"  Tom &amp; Jerry  ", "Tom & Jerry"},
		{"<b>Portal</b>\n\t2", "Portal 2"},
	}
	for _, c := range cases {
		if got := CleanText(c.in, 0); got != c.want {
			t.Fatalf("%q: expected %q, got %q", c.in, c.want, got)
		}
	}
	if got := CleanText("abcdef", 3); got != "abc" {
		t.Fatalf("expected truncation, got %q", got)
	}
}

func TestMatchAnySecret(t *testing.T) {
	hash, err := HashSecret("k1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !MatchAnySecret([]string{"garbage", hash}, "k1") {
		t.Fatal("expected match")
	}
	if MatchAnySecret([]string{hash}, "k2") || MatchAnySecret([]string{hash}, "") {
		t.Fatal("expected mismatch")
	}
}
