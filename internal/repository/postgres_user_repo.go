package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/andresmonk7/tucajaBackEnd/internal/model"
)

// PostgreSQLのunique_violationエラーコード。
const uniqueViolationCode = "23505"

// ユニーク制約名。マイグレーションのテーブル定義から決まるPostgreSQLの既定名。
const (
	constraintUsersEmail    = "users_email_key"
	constraintUsersGoogleID = "users_google_id_key"
	constraintBusinessesNIT = "businesses_nit_key"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, user_type, is_active, google_id, created_at, updated_at`

// scanUser は1行分のユーザーを読み取る。google_idのNULLは空文字列に変換する。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var googleID sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.UserType,
		&user.IsActive, &googleID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.GoogleID = googleID.String
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
// メールアドレスは保存時のまま大文字小文字を区別して比較する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByGoogleID はGoogleのsubject IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`,
		googleID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	return user, nil
}

// Create はユーザー単体を作成する（OAuth初回サインアップ用）。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, user_type, is_active, google_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.UserType,
		user.IsActive, nullableString(user.GoogleID), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if apiErr := translateUniqueViolation(err); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// CreateWithBusiness はユーザーと事業者を同一トランザクションで作成する。
// 事前チェックをすり抜けた並行登録はユニーク制約違反としてここで検出される。
func (r *PostgresUserRepo) CreateWithBusiness(ctx context.Context, user *model.User, business *model.Business) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, user_type, is_active, google_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.UserType,
		user.IsActive, nullableString(user.GoogleID), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if apiErr := translateUniqueViolation(err); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// 事業者を作成（所有ユーザーのIDを同一トランザクションで保存する）
	_, err = tx.ExecContext(ctx,
		`INSERT INTO businesses (id, nit, business_name, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		business.ID, business.NIT, business.BusinessName, business.UserID, business.CreatedAt,
	)
	if err != nil {
		if apiErr := translateUniqueViolation(err); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("failed to insert business: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SetGoogleID は既存ユーザーにGoogleのsubject IDを紐付ける。
func (r *PostgresUserRepo) SetGoogleID(ctx context.Context, userID, googleID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = $1, updated_at = now() WHERE id = $2`,
		googleID, userID,
	)
	if err != nil {
		if apiErr := translateUniqueViolation(err); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("failed to set google ID: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// nullableString は空文字列をNULLとして保存するための変換を行う。
// google_idのユニーク制約と空文字列の衝突を避ける。
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// translateUniqueViolation はPostgreSQLのユニーク制約違反をドメインエラーに変換する。
// 対象外のエラーの場合はnilを返す。
func translateUniqueViolation(err error) *model.APIError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolationCode {
		return nil
	}
	switch pqErr.Constraint {
	case constraintUsersEmail:
		return model.NewDuplicateEmailError()
	case constraintBusinessesNIT:
		return model.NewDuplicateNITError()
	case constraintUsersGoogleID:
		// 同一Googleアカウントの並行初回ログイン。呼び出し側でリトライ可能。
		return model.NewInternalError()
	default:
		return nil
	}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
