package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
)

// sealedPrefix marks a value encrypted by this middleware.
const sealedPrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte

	// Records also seals the field values of committed records.
	Records bool
}

type encryptionMiddleware struct {
	passthrough
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals pending answers
// (and optionally committed record fields) with AES-GCM. Keys and the rest
// of the session stay readable so stores can still index and compare them.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			passthrough: passthrough{next: next},
			config:      config,
		}
	}
}

func (m *encryptionMiddleware) Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error {
	sealed := next.Clone()
	for k, v := range sealed.PendingData {
		s, err := m.seal(v)
		if err != nil {
			return fmt.Errorf("failed to encrypt pending data: %w", err)
		}
		sealed.PendingData[k] = s
	}

	out := records
	if m.config.Records && len(records) > 0 {
		out = make([]domain.CommittedRecord, len(records))
		for i, rec := range records {
			fields := make(map[string]string, len(rec.Fields))
			for k, v := range rec.Fields {
				s, err := m.seal(v)
				if err != nil {
					return fmt.Errorf("failed to encrypt record: %w", err)
				}
				fields[k] = s
			}
			rec.Fields = fields
			out[i] = rec
		}
	}
	return m.next.Apply(ctx, userID, expected, sealed, out)
}

func (m *encryptionMiddleware) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	state, err := m.next.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for k, v := range state.PendingData {
		plain, err := m.open(v)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt pending data %q: %w", k, err)
		}
		state.PendingData[k] = plain
	}
	return state, nil
}

func (m *encryptionMiddleware) Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	records, err := m.records(ctx, collection)
	if err != nil || !m.config.Records {
		return records, err
	}
	for i := range records {
		for k, v := range records[i].Fields {
			plain, err := m.open(v)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt record %s: %w", records[i].ID, err)
			}
			records[i].Fields[k] = plain
		}
	}
	return records, nil
}

func (m *encryptionMiddleware) seal(plain string) (string, error) {
	ciphertext, err := encrypt([]byte(plain), m.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *encryptionMiddleware) open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		// Fail secure: with encryption configured, plaintext at rest is an error.
		return "", errors.New("value is missing its encryption envelope")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
