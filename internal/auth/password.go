package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost はbcryptのワークファクターの既定値。
const DefaultBcryptCost = 10

// MaxSecretBytes はbcryptが受け付けるsecretの最大バイト長。
const MaxSecretBytes = 72

// Hasher はパスワードの一方向ハッシュ化と照合のインターフェース。
type Hasher interface {
	// Hash はsecretのダイジェストを返す。ソルトは呼び出しごとにランダムでダイジェストに埋め込まれる。
	Hash(secret string) (string, error)
	// Verify はsecretがdigestと一致するかを返す。不正な形式のdigestはfalseを返す。
	Verify(secret, digest string) bool
}

// BcryptHasher はbcryptによるHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。範囲外のcostは既定値に丸める。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はsecretをbcryptでハッシュ化する。
func (h *BcryptHasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify はsecretとdigestを照合する。
// bcryptは先頭72バイトしか比較しないため、それより長いsecretは一致させない。
func (h *BcryptHasher) Verify(secret, digest string) bool {
	if len(secret) > MaxSecretBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

// RandomSecret は暗号論的乱数からnバイトを生成し16進文字列で返す。
func RandomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var _ Hasher = (*BcryptHasher)(nil)
