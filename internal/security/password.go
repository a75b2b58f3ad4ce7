// Package security はパスワードのハッシュ化と照合を提供する。
package security

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost はパスワードハッシュのbcryptコスト。
const DefaultCost = 10

// UnusablePasswordHash はOAuth専用アカウントに保存するセンチネル値。
// 有効なbcryptハッシュではないため、どのパスワードとも照合に成功しない。
// 別フローでパスワードが明示的に設定されるまでローカルログインは不可。
const UnusablePasswordHash = "!"

// Hasher はbcryptによるパスワードのハッシュ化と照合を行う。
// 平文パスワードをログや永続化層に渡してはならない。
type Hasher struct {
	cost int
}

// NewHasher は指定コストのHasherを生成する。
// コストが範囲外の場合はDefaultCostに丸める。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードのbcryptハッシュを生成する。
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare は平文パスワードを保存済みハッシュと照合する。
// 一致しない場合、またはハッシュが不正（センチネル値を含む）な場合はエラーを返す。
func (h *Hasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
