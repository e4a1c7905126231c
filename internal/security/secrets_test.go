package security

import (
	"testing"

	"nullclaw/internal/domain"
)

func TestIsSecretVisible(t *testing.T) {
	cases := []struct {
		name      string
		scope     domain.SecretScope
		qualifier string
		workspace string
		want      bool
	}{
		{"global secret always visible", domain.SecretScopeGlobal, "", "any-workspace", true},
		{"session secret always visible", domain.SecretScopeSession, "", "any-workspace", true},
		{"workspace secret visible in matching workspace", domain.SecretScopeWorkspace, "w1", "w1", true},
		{"workspace secret hidden in other workspace", domain.SecretScopeWorkspace, "w1", "w2", false},
		{"group secret never resolved at this layer", domain.SecretScopeGroup, "g1", "w1", false},
	}
	for _, c := range cases {
		secret := domain.Secret{Name: "x", Scope: c.scope, Qualifier: c.qualifier}
		if got := IsSecretVisible(secret, c.workspace); got != c.want {
			t.Errorf("%s: IsSecretVisible() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSecretStorePutResolvePlaintext(t *testing.T) {
	s := NewSecretStore(nil)
	if err := s.Put(domain.Secret{Name: "api-key", Value: "shh", Scope: domain.SecretScopeGlobal}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	value, ok, err := s.Resolve("api-key", "any-workspace")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ok || value != "shh" {
		t.Errorf("Resolve() = (%q, %v), want (shh, true)", value, ok)
	}
}

func TestSecretStoreWorkspaceScoping(t *testing.T) {
	s := NewSecretStore(nil)
	_ = s.Put(domain.Secret{Name: "db-pass", Value: "p1", Scope: domain.SecretScopeWorkspace, Qualifier: "w1"})

	if _, ok, _ := s.Resolve("db-pass", "w2"); ok {
		t.Error("secret scoped to w1 must not resolve in w2")
	}
	value, ok, err := s.Resolve("db-pass", "w1")
	if err != nil || !ok || value != "p1" {
		t.Errorf("Resolve() = (%q, %v, %v), want (p1, true, nil)", value, ok, err)
	}
}

func TestSecretStoreEncryptsAtRest(t *testing.T) {
	enc, err := NewAESContentEncryptor("test-passphrase")
	if err != nil {
		t.Fatalf("NewAESContentEncryptor: %v", err)
	}
	s := NewSecretStore(enc)
	if err := s.Put(domain.Secret{Name: "token", Value: "super-secret", Scope: domain.SecretScopeGlobal}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	s.mu.RLock()
	var stored string
	for _, sec := range s.secrets {
		stored = sec.Value
	}
	s.mu.RUnlock()
	if stored == "super-secret" {
		t.Error("expected the stored value to be encrypted, not plaintext")
	}

	value, ok, err := s.Resolve("token", "any-workspace")
	if err != nil || !ok || value != "super-secret" {
		t.Errorf("Resolve() = (%q, %v, %v), want (super-secret, true, nil)", value, ok, err)
	}
}

func TestSecretStoreUnknownSecretMisses(t *testing.T) {
	s := NewSecretStore(nil)
	if _, ok, err := s.Resolve("missing", "w1"); ok || err != nil {
		t.Errorf("Resolve() for unknown secret = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}
