// Package auth はユーザー登録・ログイン・Google OAuth連携のビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/andresmonk7/tucajaBackEnd/internal/model"
	"github.com/andresmonk7/tucajaBackEnd/internal/repository"
	"github.com/andresmonk7/tucajaBackEnd/internal/security"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer はアクセストークン発行のインターフェース。
type TokenIssuer interface {
	Issue(email, subject, name string) (string, error)
}

// MetricsRecorder は認証結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRegisterSuccess()
	RecordRegisterFailure(reason string)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordOAuthLogin(outcome string)
}

// RegisterInput はユーザー登録の入力。検証済みの値を渡すこと。
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	UserType     string
	BusinessName string
	NIT          string
	BusinessType string // 受理はするが現時点では保存しない
}

// GoogleAssertion は検証済みの外部アイデンティティ表明。
// OAuthコールバックハンドラーがプロバイダーとのハンドシェイク完了後に生成する。
// このサービスは外部プロバイダーと直接通信しない。
type GoogleAssertion struct {
	Email     string
	FirstName string
	LastName  string
	GoogleID  string
}

// UserView はパスワードハッシュを除いたユーザーの公開ビュー。
type UserView struct {
	ID        string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserType  string `json:"userType"`
}

// BusinessView は作成された事業者の公開ビュー。
type BusinessView struct {
	ID           string `json:"businessId"`
	BusinessName string `json:"businessName"`
	NIT          string `json:"nit"`
}

// RegisterResult は登録成功時に返すユーザーと事業者のビュー。
type RegisterResult struct {
	User     UserView     `json:"user"`
	Business BusinessView `json:"business"`
}

// Service は認証に関するビジネスロジックを提供する。
// リクエストごとに独立して呼び出され、プロセス内に共有可変状態を持たない。
type Service struct {
	users      repository.UserRepository
	businesses repository.BusinessRepository
	hasher     PasswordHasher
	tokens     TokenIssuer
	metrics    MetricsRecorder // nil可
}

// NewService はServiceを生成する。metricsはnilを許容する。
func NewService(
	users repository.UserRepository,
	businesses repository.BusinessRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		users:      users,
		businesses: businesses,
		hasher:     hasher,
		tokens:     tokens,
		metrics:    metrics,
	}
}

// Register はユーザーと事業者を同一トランザクションで作成する。
// メールアドレスまたはNITが登録済みの場合は書き込みを行わずに重複エラーを返す。
// 事前チェックをすり抜けた並行登録はストレージ層のユニーク制約で検出される。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	// 1. メールアドレスの重複チェック
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		s.recordRegisterFailure("duplicate_email")
		return nil, model.NewDuplicateEmailError()
	}

	// 2. NITの重複チェック
	existingBusiness, err := s.businesses.FindByNIT(ctx, in.NIT)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing NIT: %w", err)
	}
	if existingBusiness != nil {
		s.recordRegisterFailure("duplicate_nit")
		return nil, model.NewDuplicateNITError()
	}

	// 3. パスワードをハッシュ化
	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 4. ユーザーと事業者をアトミックに作成
	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: passwordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserType:     in.UserType,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	business := &model.Business{
		ID:           uuid.New().String(),
		NIT:          in.NIT,
		BusinessName: in.BusinessName,
		UserID:       user.ID,
		CreatedAt:    now,
	}

	if err := s.users.CreateWithBusiness(ctx, user, business); err != nil {
		// 並行登録によるユニーク制約違反は重複エラーとしてそのまま返す
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			s.recordRegisterFailure("constraint_violation")
			return nil, apiErr
		}
		s.recordRegisterFailure("persistence_error")
		return nil, fmt.Errorf("failed to create user and business: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("user_type", user.UserType),
	)
	if s.metrics != nil {
		s.metrics.RecordRegisterSuccess()
	}

	// 5. パスワードハッシュを除いたビューを返す
	return &RegisterResult{
		User: UserView{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			UserType:  user.UserType,
		},
		Business: BusinessView{
			ID:           business.ID,
			BusinessName: business.BusinessName,
			NIT:          business.NIT,
		},
	}, nil
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// ユーザー未登録・無効化済み・パスワード不一致は区別できない同一エラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		s.recordLoginFailure()
		return "", model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.recordLoginFailure()
		return "", model.NewInvalidCredentialsError()
	}

	accessToken, err := s.tokens.Issue(user.Email, user.ID, user.DisplayName())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	return accessToken, nil
}

// LoginWithGoogle は検証済みのGoogleアイデンティティ表明でログインまたはサインアップする。
// 既存ユーザーが未連携の場合はgoogle_idを一度だけ紐付ける（パスワードは変更しない）。
// ユーザーが存在しない場合はOAuth専用アカウントを新規作成する。
// 同一のsubject IDで繰り返し呼んでも冪等で、2回目以降は既存ユーザーを再利用する。
func (s *Service) LoginWithGoogle(ctx context.Context, assertion GoogleAssertion) (string, error) {
	// 1. Google subject ID、次にメールアドレスで既存ユーザーを検索
	user, err := s.users.FindByGoogleID(ctx, assertion.GoogleID)
	if err != nil {
		return "", fmt.Errorf("failed to find user by google ID: %w", err)
	}
	if user == nil {
		user, err = s.users.FindByEmail(ctx, assertion.Email)
		if err != nil {
			return "", fmt.Errorf("failed to find user by email: %w", err)
		}
	}

	outcome := "login"

	if user != nil {
		// 2a. 未連携ならgoogle_idを紐付ける
		if user.GoogleID == "" {
			if err := s.users.SetGoogleID(ctx, user.ID, assertion.GoogleID); err != nil {
				return "", fmt.Errorf("failed to link google ID: %w", err)
			}
			user.GoogleID = assertion.GoogleID
			outcome = "linked"
			slog.Info("google identity linked",
				slog.String("user_id", user.ID),
			)
		}

		// 2b. 無効化済みアカウントは拒否
		if !user.IsActive {
			return "", model.NewInactiveAccountError()
		}
	} else {
		// 3. 新規ユーザー: OAuth専用アカウントを作成
		now := time.Now()
		user = &model.User{
			ID:           uuid.New().String(),
			Email:        assertion.Email,
			PasswordHash: security.UnusablePasswordHash,
			FirstName:    assertion.FirstName,
			LastName:     assertion.LastName,
			UserType:     model.UserTypeGoogle,
			IsActive:     true,
			GoogleID:     assertion.GoogleID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return "", fmt.Errorf("failed to create google user: %w", err)
		}
		outcome = "signup"
		slog.Info("google user created",
			slog.String("user_id", user.ID),
		)
	}

	// 4. アクセストークンを発行（パスワード検証なし。表明の検証は呼び出し側の責務）
	accessToken, err := s.tokens.Issue(user.Email, user.ID, user.DisplayName())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOAuthLogin(outcome)
	}
	return accessToken, nil
}

// GetUser は指定IDのユーザーを取得する。見つからない場合はエラーを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	return user, nil
}

func (s *Service) recordRegisterFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordRegisterFailure(reason)
	}
}

func (s *Service) recordLoginFailure() {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure()
	}
}
