package utils

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
)

// Decrypter turns an encrypted config payload back into plaintext
type Decrypter interface {
	Decrypt(ctx context.Context, cipherData []byte) ([]byte, error)
}

type kmsDecrypter struct {
	client *kms.Client
}

func (k *kmsDecrypter) Decrypt(ctx context.Context, cipherData []byte) ([]byte, error) {
	out, err := k.client.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: cipherData})
	if err != nil {
		return nil, fmt.Errorf("kms decrypt failed: %w", err)
	}
	return out.Plaintext, nil
}

// aesDecrypter is AES-GCM with a SHA-256 derived key; the nonce prefixes the ciphertext
type aesDecrypter struct {
	key []byte
}

func (a *aesDecrypter) Decrypt(_ context.Context, cipherData []byte) ([]byte, error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(cipherData) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := cipherData[:nonceSize], cipherData[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("aes decrypt failed: %w", err)
	}
	return plaintext, nil
}

// NewDecrypter picks KMS for key ARNs and local AES-GCM for anything else.
// A nil Decrypter means encryption is disabled.
func NewDecrypter(ctx context.Context, key string) (Decrypter, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil
	}

	if strings.HasPrefix(key, "arn:aws:kms:") {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return &kmsDecrypter{client: kms.NewFromConfig(cfg)}, nil
	}

	hash := sha256.Sum256([]byte(key))
	return &aesDecrypter{key: hash[:]}, nil
}

// DecryptConfig decrypts a base64 encoded (optionally JSON quoted) payload with the
// key configured under ENCRYPTION_KEY
func DecryptConfig(encryptedConfig string) (string, error) {
	decrypter, err := NewDecrypter(context.Background(), viper.GetString(constants.EncryptionKey))
	if err != nil {
		return "", err
	}
	if decrypter == nil {
		return encryptedConfig, nil
	}

	var unquoted string
	if err := json.Unmarshal([]byte(encryptedConfig), &unquoted); err != nil {
		unquoted = encryptedConfig
	}

	encryptedData, err := base64.URLEncoding.DecodeString(unquoted)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 data: %s", err)
	}

	decrypted, err := decrypter.Decrypt(context.Background(), encryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt data: %s", err)
	}
	return string(decrypted), nil
}
