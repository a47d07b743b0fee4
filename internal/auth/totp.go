package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	totpPeriod     = 30
	totpSecretSize = 20
	qrCodeSize     = 256
)

// TOTPEnrollment is what a client needs to add the account to an authenticator app
type TOTPEnrollment struct {
	Secret     string // base32, no padding
	OTPAuthURL string
	QRCode     string // PNG data URL
}

// TOTPManager handles TOTP provisioning, validation and at-rest encryption of secrets
type TOTPManager struct {
	encryptionKey []byte // 32-byte AES-256 key
	issuer        string
	skew          uint
}

// NewTOTPManager creates a new TOTP manager
// encryptionKey must be exactly 32 bytes for AES-256
func NewTOTPManager(encryptionKey []byte, issuer string, skew uint) (*TOTPManager, error) {
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(encryptionKey))
	}

	return &TOTPManager{
		encryptionKey: encryptionKey,
		issuer:        issuer,
		skew:          skew,
	}, nil
}

func (tm *TOTPManager) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      tm.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret creates a fresh secret labelled with the account email
func (tm *TOTPManager) GenerateSecret(accountEmail string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountEmail,
		SecretSize:  totpSecretSize,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qr, err := qrcode.New(key.URL(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &TOTPEnrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Validate reports whether code is the 6-digit TOTP for secret at the given
// instant, allowing the configured number of 30s steps of drift either side.
// Malformed secrets and codes are simply invalid.
func (tm *TOTPManager) Validate(secret, code string, at time.Time) bool {
	if secret == "" || len(code) != int(otp.DigitsSix) {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, at, tm.validateOpts())
	if err != nil {
		return false
	}
	return valid
}

// GenerateCode returns the code for secret at the given instant
func (tm *TOTPManager) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, tm.validateOpts())
}

// EncryptSecret encrypts a TOTP secret using AES-256-GCM
// Returns: (ciphertext, nonce, error)
func (tm *TOTPManager) EncryptSecret(secret string) ([]byte, []byte, error) {
	gcm, err := tm.gcm()
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nil, nonce, []byte(secret), nil), nonce, nil
}

// DecryptSecret decrypts a secret produced by EncryptSecret
func (tm *TOTPManager) DecryptSecret(ciphertext, nonce []byte) (string, error) {
	gcm, err := tm.gcm()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

func (tm *TOTPManager) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(tm.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
