// Package token はセッショントークン（JWT）の発行と検証を提供する。
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims はセッショントークンに含めるクレームセット。
// subには認証されたユーザーのIDを設定する。
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issuer はHS256署名のJWTを発行・検証する。
// トークンは永続化せず、要求の都度生成する。
type Issuer struct {
	secret    []byte
	expiresIn time.Duration
}

// NewIssuer はIssuerを生成する。
// expiresInが0以下の場合は60分を使用する。
func NewIssuer(secret string, expiresIn time.Duration) *Issuer {
	if expiresIn <= 0 {
		expiresIn = 60 * time.Minute
	}
	return &Issuer{
		secret:    []byte(secret),
		expiresIn: expiresIn,
	}
}

// Issue は署名済みアクセストークンを発行する。
// subjectには認証されたユーザーのID、nameには表示名（空可）を渡す。
func (i *Issuer) Issue(email, subject, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiresIn)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse は署名と有効期限を検証し、クレームを取り出す。
// 署名方式がHS256以外のトークンは拒否する。
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}
