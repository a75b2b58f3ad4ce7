package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresmonk7/tucajaBackEnd/internal/model"
)

// PostgresBusinessRepo はPostgreSQLを使用した事業者リポジトリ。
type PostgresBusinessRepo struct {
	db *sql.DB
}

// NewPostgresBusinessRepo はPostgresBusinessRepoを生成する。
func NewPostgresBusinessRepo(db *sql.DB) *PostgresBusinessRepo {
	return &PostgresBusinessRepo{db: db}
}

// FindByNIT は税務登録番号で事業者を検索する。見つからない場合はnilを返す。
func (r *PostgresBusinessRepo) FindByNIT(ctx context.Context, nit string) (*model.Business, error) {
	business := &model.Business{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, nit, business_name, user_id, created_at
		 FROM businesses
		 WHERE nit = $1`,
		nit,
	).Scan(&business.ID, &business.NIT, &business.BusinessName, &business.UserID, &business.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find business by NIT: %w", err)
	}

	return business, nil
}

// compile-time interface check
var _ BusinessRepository = (*PostgresBusinessRepo)(nil)
