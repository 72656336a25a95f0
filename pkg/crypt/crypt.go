package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32
	nonceSize = 12
	info      = "icscal ics-token"
)

var ErrInvalidToken = errors.New("invalid token")

// Encrypter seals upstream credentials into an opaque url-safe token so the
// feed endpoint can log in on the subscriber's behalf.
type Encrypter struct {
	aead cipher.AEAD
}

func New(secret string) (*Encrypter, error) {
	if secret == "" {
		return nil, errors.New("empty encryption secret")
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("err deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("err creating cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("err creating gcm: %w", err)
	}
	return &Encrypter{aead: aead}, nil
}

func (e *Encrypter) Encrypt(username, password string) (string, error) {
	nonce := make([]byte, nonceSize, nonceSize+len(username)+len(password)+1+e.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("err generating nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(username+":"+password), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (e *Encrypter) Decrypt(token string) (username, password string, err error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(data) < nonceSize {
		return "", "", ErrInvalidToken
	}
	plain, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	username, password, found := strings.Cut(string(plain), ":")
	if !found {
		return "", "", ErrInvalidToken
	}
	return username, password, nil
}
