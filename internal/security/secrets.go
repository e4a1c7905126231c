package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"nullclaw/internal/domain"
)

// secretEncryptor is the subset of AESContentEncryptor the secret store needs.
type secretEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

const secretEncPrefix = "enc:"

// AESContentEncryptor encrypts secret values at rest with AES-256-GCM. The
// key is derived from a passphrase via Argon2id and held only in memory.
type AESContentEncryptor struct {
	mu  sync.RWMutex
	key []byte // 32 bytes
}

// NewAESContentEncryptor creates an encryptor from a passphrase. Returns an
// error if passphrase is empty.
func NewAESContentEncryptor(passphrase string) (*AESContentEncryptor, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}

	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	return &AESContentEncryptor{key: deriveSecretKey(passphrase, salt)}, nil
}

// Encrypt encrypts plaintext and returns "enc:" + base64(nonce + ciphertext).
func (e *AESContentEncryptor) Encrypt(plaintext string) (string, error) {
	e.mu.RLock()
	key := make([]byte, len(e.key))
	copy(key, e.key)
	e.mu.RUnlock()

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return secretEncPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext. Input without the "enc:" prefix is returned
// as-is, for backward compatibility with secrets stored before encryption
// was enabled.
func (e *AESContentEncryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, secretEncPrefix) {
		return ciphertext, nil
	}

	e.mu.RLock()
	key := make([]byte, len(e.key))
	copy(key, e.key)
	e.mu.RUnlock()

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, secretEncPrefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// deriveSecretKey uses Argon2id to derive a 32-byte key from passphrase and salt.
func deriveSecretKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// SecretStore holds secrets at rest, encrypted via a secretEncryptor, and
// resolves visibility per the scoping rules: a secret is visible in
// workspace W when its scope is global or session, or its scope is
// workspace and its qualifier equals W; group scope is never resolved here.
type SecretStore struct {
	mu      sync.RWMutex
	enc     secretEncryptor
	secrets map[string]domain.Secret // Value holds ciphertext when enc is set
}

// NewSecretStore creates an empty secret store. enc may be nil, in which
// case secret values are stored as plaintext (used for tests and for
// deployments with encryption disabled).
func NewSecretStore(enc secretEncryptor) *SecretStore {
	return &SecretStore{
		enc:     enc,
		secrets: make(map[string]domain.Secret),
	}
}

// Put stores a secret, encrypting its value if a secretEncryptor is set.
func (s *SecretStore) Put(secret domain.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enc != nil {
		ciphertext, err := s.enc.Encrypt(secret.Value)
		if err != nil {
			return domain.NewSubSystemError("security", "SecretStore.Put", domain.ErrEncryption, err.Error())
		}
		secret.Value = ciphertext
	}
	s.secrets[secretKey(secret.Name, secret.Scope, secret.Qualifier)] = secret
	return nil
}

// Resolve returns the decrypted value of name if it is visible from
// workspace. Multiple secrets may share a name across scopes; the most
// specific visible match wins: workspace-scoped over global/session.
func (s *SecretStore) Resolve(name, workspace string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Secret
	for key, secret := range s.secrets {
		_ = key
		if secret.Name != name {
			continue
		}
		if !IsSecretVisible(secret, workspace) {
			continue
		}
		if best == nil || secret.Scope == domain.SecretScopeWorkspace {
			sc := secret
			best = &sc
		}
	}
	if best == nil {
		return "", false, nil
	}

	value := best.Value
	if s.enc != nil {
		plain, err := s.enc.Decrypt(value)
		if err != nil {
			return "", false, domain.NewSubSystemError("security", "SecretStore.Resolve", domain.ErrDecryption, err.Error())
		}
		value = plain
	}
	return value, true, nil
}

// IsSecretVisible reports whether secret is visible within workspace w,
// per the security policy engine's scope resolution rules.
func IsSecretVisible(secret domain.Secret, workspace string) bool {
	switch secret.Scope {
	case domain.SecretScopeGlobal, domain.SecretScopeSession:
		return true
	case domain.SecretScopeWorkspace:
		return secret.Qualifier == workspace
	case domain.SecretScopeGroup:
		return false
	default:
		return false
	}
}

func secretKey(name string, scope domain.SecretScope, qualifier string) string {
	return fmt.Sprintf("%s|%s|%s", name, scope, qualifier)
}
