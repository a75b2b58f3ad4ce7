// Package model はドメインモデルを定義する。
package model

import "time"

// UserTypeGoogle はGoogle OAuth経由で自動作成されたユーザーの種別。
// ローカル登録ユーザーの種別は登録リクエストの自由記述（例: "freelancer"）。
const UserTypeGoogle = "usuario_google"

// User は認証可能なアカウントを表す。
// ローカル登録（パスワード）とGoogle OAuth登録の両方をカバーする。
type User struct {
	ID           string
	Email        string
	PasswordHash string // OAuth専用アカウントではログイン不可のセンチネル値
	FirstName    string
	LastName     string
	UserType     string
	IsActive     bool
	GoogleID     string // 未連携の場合は空文字列（DBではNULL）
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName はトークンのnameクレームに使用する表示名を返す。
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
