package storage

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Signer produces signatures for V4 signed URL generation.
type Signer interface {
	// Email returns the service account email used as GoogleAccessID.
	Email() string
	// SignBytes signs the URL string-to-sign with the account's private key.
	SignBytes(ctx context.Context, payload []byte) ([]byte, error)
}

// ServiceAccountSigner signs with the RSA key from a service account JSON
// credential. The key is parsed once at construction.
type ServiceAccountSigner struct {
	email string
	key   *rsa.PrivateKey
}

var _ Signer = (*ServiceAccountSigner)(nil)

// NewServiceAccountSignerFromJSON parses a service account credential and
// returns a signer for its key.
func NewServiceAccountSignerFromJSON(data []byte) (*ServiceAccountSigner, error) {
	var creds struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("storage: decode service account json: %w", err)
	}

	email := strings.TrimSpace(creds.ClientEmail)
	if email == "" {
		return nil, errors.New("storage: service account json has no client_email")
	}

	key, err := rsaKeyFromPEM(strings.TrimSpace(creds.PrivateKey))
	if err != nil {
		return nil, err
	}
	return &ServiceAccountSigner{email: email, key: key}, nil
}

func (s *ServiceAccountSigner) Email() string { return s.email }

// SignBytes computes an RSA PKCS#1 v1.5 signature over SHA-256 of payload.
func (s *ServiceAccountSigner) SignBytes(ctx context.Context, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errors.New("storage: nothing to sign")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("storage: sign payload: %w", err)
	}
	return sig, nil
}

// rsaKeyFromPEM accepts PKCS#8 or PKCS#1 encoded RSA keys, the two formats
// Google issues for service accounts.
func rsaKeyFromPEM(pemData string) (*rsa.PrivateKey, error) {
	if pemData == "" {
		return nil, errors.New("storage: service account json has no private_key")
	}
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("storage: private_key is not PEM encoded")
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("storage: private_key is not an RSA key")
		}
		return key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("storage: parse private_key: %w", err)
	}
	return key, nil
}
