// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/andresmonk7/tucajaBackEnd/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByGoogleID はGoogleのsubject IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザー単体を作成する（OAuth初回サインアップ用）。
	// email、google_idのユニーク制約違反は*model.APIErrorに変換して返す。
	Create(ctx context.Context, user *model.User) error

	// CreateWithBusiness はユーザーと事業者を同一トランザクションで作成する。
	// どちらか一方でも失敗した場合は両方ロールバックされ、部分状態は残らない。
	// ユニーク制約違反は*model.APIErrorに変換して返す。
	CreateWithBusiness(ctx context.Context, user *model.User, business *model.Business) error

	// SetGoogleID は既存ユーザーにGoogleのsubject IDを紐付ける。
	// 他のカラム（password_hash等）は変更しない。
	SetGoogleID(ctx context.Context, userID, googleID string) error
}

// BusinessRepository は事業者データの永続化インターフェース。
type BusinessRepository interface {
	// FindByNIT は税務登録番号で事業者を検索する。見つからない場合はnilを返す。
	FindByNIT(ctx context.Context, nit string) (*model.Business, error)
}
