// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeDuplicateNIT       = "DUPLICATE_NIT"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInactiveAccount    = "INACTIVE_ACCOUNT"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
	}
}

// NewDuplicateNITError は税務登録番号（NIT）重複エラーを生成する。
func NewDuplicateNITError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateNIT,
		Message:  "この税務登録番号は既に登録されています。",
		Category: "validation",
		Action:   "税務登録番号を確認してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレス未登録・パスワード不一致・アカウント無効化のいずれでも
// 同一のエラーを返し、どの条件で失敗したかを呼び出し側に開示しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInactiveAccountError は無効化済みアカウントのOAuthログイン拒否エラーを生成する。
func NewInactiveAccountError() *APIError {
	return &APIError{
		Code:     ErrCodeInactiveAccount,
		Message:  "このアカウントは無効化されています。",
		Category: "auth",
		Action:   "サポートへお問い合わせください。",
	}
}

// NewValidationFailedError は入力検証エラーを生成する。
// フィールドごとの詳細はハンドラー層のレスポンスに含める。
func NewValidationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドのエラーを確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 内部の詳細はログのみに記録し、呼び出し側には一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
